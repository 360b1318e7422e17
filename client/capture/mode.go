// Package capture implements the dashboard's entry adapters: the four
// ways stock gets into the system (typed in, file upload, photo scan,
// barcode scan) plus the surface that switches between them.
package capture

import "fmt"

// Mode is the active capture mode. The set is closed; every switch
// over Mode handles all five values.
type Mode int

const (
	ModeNone Mode = iota
	ModeManual
	ModeFileUpload
	ModePhotoScan
	ModeBarcodeScan
)

// String returns the mode name for logs and UI labels.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeManual:
		return "manual"
	case ModeFileUpload:
		return "file_upload"
	case ModePhotoScan:
		return "photo_scan"
	case ModeBarcodeScan:
		return "barcode_scan"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeNone, ModeManual, ModeFileUpload, ModePhotoScan, ModeBarcodeScan:
		return true
	default:
		return false
	}
}
