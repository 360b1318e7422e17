package capture

import (
	"context"

	"github.com/inair/warehouse/client/api"
)

// PhotoGateway is the submission call the photo adapter needs.
type PhotoGateway interface {
	SubmitPhoto(ctx context.Context, image []byte) (*api.Result, error)
}

// PhotoAdapter captures one frame and submits it for recognition. The
// camera is held only for the duration of Capture; every exit path
// releases it before any network I/O.
type PhotoAdapter struct {
	gw     PhotoGateway
	device Device
}

// NewPhotoAdapter creates a PhotoAdapter.
func NewPhotoAdapter(gw PhotoGateway, device Device) *PhotoAdapter {
	return &PhotoAdapter{gw: gw, device: device}
}

// Capture acquires the camera, takes one frame, releases the camera,
// then submits the frame. A NeedsFallback result means recognition
// failed and the operator should be routed to manual entry.
func (a *PhotoAdapter) Capture(ctx context.Context) (*api.Result, error) {
	handle, err := a.device.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	image, err := handle.Photo(ctx)
	handle.Release()
	if err != nil {
		return nil, err
	}

	return a.gw.SubmitPhoto(ctx, image)
}
