package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/inair/warehouse/client/api"
)

// ErrAlreadyScanned is returned when ScanOne is called twice in the
// same session.
var ErrAlreadyScanned = errors.New("capture: session already submitted a decode")

// ErrNotOpen is returned when the barcode session is not open.
var ErrNotOpen = errors.New("capture: scan session not open")

// BarcodeGateway is the submission call the barcode adapter needs.
type BarcodeGateway interface {
	SubmitBarcode(ctx context.Context, code string) (*api.Result, error)
}

// FallbackFunc is invoked when the backend does not recognize a code
// and the operator must finish the entry manually. Called exactly once
// per unknown code, with the code pre-filled.
type FallbackFunc func(code string)

// BarcodeAdapter runs live barcode scanning sessions. A session holds
// the camera from Open to the first decode (or Close); at most one
// decode is submitted per session, and capture stops before the
// submission goes out.
type BarcodeAdapter struct {
	gw       BarcodeGateway
	device   Device
	fallback FallbackFunc

	mu        sync.Mutex
	handle    DeviceHandle
	submitted bool
}

// NewBarcodeAdapter creates a BarcodeAdapter.
func NewBarcodeAdapter(gw BarcodeGateway, device Device, fallback FallbackFunc) *BarcodeAdapter {
	return &BarcodeAdapter{gw: gw, device: device, fallback: fallback}
}

// Open acquires the camera and starts a session. An already open
// session is closed first.
func (a *BarcodeAdapter) Open(ctx context.Context) error {
	a.Close()

	handle, err := a.device.Acquire(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.handle = handle
	a.submitted = false
	a.mu.Unlock()
	return nil
}

// ScanOne blocks until one code is decoded, releases the camera, and
// submits the code. A backend miss triggers the fallback callback and
// comes back as NeedsFallback — never a silent drop.
func (a *BarcodeAdapter) ScanOne(ctx context.Context) (*api.Result, error) {
	a.mu.Lock()
	handle := a.handle
	if handle == nil {
		a.mu.Unlock()
		return nil, ErrNotOpen
	}
	if a.submitted {
		a.mu.Unlock()
		return nil, ErrAlreadyScanned
	}
	a.submitted = true
	a.mu.Unlock()

	code, err := handle.Barcode(ctx)

	// Capture stops on the first decode, before any network I/O.
	a.Close()

	if err != nil {
		return nil, err
	}

	res, err := a.gw.SubmitBarcode(ctx, code)
	if err != nil {
		return nil, err
	}
	if res.Status == api.NeedsFallback && a.fallback != nil {
		a.fallback(code)
	}
	return res, nil
}

// Close ends the session and releases the camera. Safe on an already
// closed adapter.
func (a *BarcodeAdapter) Close() {
	a.mu.Lock()
	handle := a.handle
	a.handle = nil
	a.mu.Unlock()

	if handle != nil {
		handle.Release()
	}
}

// Active reports whether a session currently holds the camera.
func (a *BarcodeAdapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handle != nil
}
