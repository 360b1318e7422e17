package capture

import "context"

// Device is a camera the photo and barcode adapters borrow. Acquire
// hands out an exclusive handle; the adapters guarantee Release on
// every exit path, so a device is never left held by a closed surface.
type Device interface {
	Acquire(ctx context.Context) (DeviceHandle, error)
}

// DeviceHandle is one exclusive camera lease.
type DeviceHandle interface {
	// Photo captures a single frame.
	Photo(ctx context.Context) ([]byte, error)
	// Barcode blocks until one code is decoded.
	Barcode(ctx context.Context) (string, error)
	// Release returns the camera. Safe to call more than once.
	Release()
}
