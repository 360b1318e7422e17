package capture

import (
	"context"
	"fmt"
	"sync"
)

// Gateway bundles the submission calls of all four adapters.
// Satisfied by *api.Client.
type Gateway interface {
	ManualGateway
	FileGateway
	PhotoGateway
	BarcodeGateway
}

// Surface is the capture panel: it owns the active mode and the four
// adapters behind it. Switching modes or closing the surface always
// tears down the previous mode's resources, so a camera can never be
// left held by an inactive adapter.
type Surface struct {
	Manual  *ManualAdapter
	File    *FileAdapter
	Photo   *PhotoAdapter
	Barcode *BarcodeAdapter

	mu   sync.Mutex
	mode Mode
}

// NewSurface creates a Surface in ModeNone.
func NewSurface(gw Gateway, device Device, fallback FallbackFunc) *Surface {
	s := &Surface{
		Manual: NewManualAdapter(gw),
		File:   NewFileAdapter(gw),
		Photo:  NewPhotoAdapter(gw, device),
	}
	// An unknown barcode drops the operator into manual entry with the
	// code pre-filled; the surface switches modes before the caller's
	// fallback runs.
	s.Barcode = NewBarcodeAdapter(gw, device, func(code string) {
		s.SetMode(ModeManual)
		if fallback != nil {
			fallback(code)
		}
	})
	return s
}

// Mode returns the active capture mode.
func (s *Surface) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the active mode, tearing down the previous one.
func (s *Surface) SetMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("capture: invalid mode %d", int(mode))
	}

	s.mu.Lock()
	prev := s.mode
	s.mode = mode
	s.mu.Unlock()

	if prev != mode {
		s.teardown(prev)
	}
	return nil
}

// OpenBarcode switches to barcode mode and starts a scan session.
func (s *Surface) OpenBarcode(ctx context.Context) error {
	if err := s.SetMode(ModeBarcodeScan); err != nil {
		return err
	}
	return s.Barcode.Open(ctx)
}

// Close resets the surface to ModeNone and releases everything the
// active mode held.
func (s *Surface) Close() {
	s.mu.Lock()
	prev := s.mode
	s.mode = ModeNone
	s.mu.Unlock()
	s.teardown(prev)
}

// teardown releases whatever the given mode held. Exhaustive over the
// mode set.
func (s *Surface) teardown(mode Mode) {
	switch mode {
	case ModeNone:
	case ModeManual:
		s.Manual.Cancel()
	case ModeFileUpload:
		s.File.Cancel()
	case ModePhotoScan:
		// The photo adapter holds the camera only inside Capture.
	case ModeBarcodeScan:
		s.Barcode.Close()
	}
}
