package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/inair/warehouse/client/api"
)

// FileGateway is the submission call the file adapter needs.
type FileGateway interface {
	SubmitFile(ctx context.Context, filename string, content io.Reader) (*api.Result, error)
}

// FileAdapter is the bulk upload flow. Like the manual adapter it is
// two-step: Arm validates and stages the file, Commit uploads it.
// Only .csv and .xlsx files are accepted; the check happens at Arm so
// the operator learns about a bad file before confirming.
type FileAdapter struct {
	gw FileGateway

	mu       sync.Mutex
	armed    bool
	filename string
	content  []byte
}

// NewFileAdapter creates a FileAdapter.
func NewFileAdapter(gw FileGateway) *FileAdapter {
	return &FileAdapter{gw: gw}
}

// Arm stages a file for upload after validating its extension.
func (a *FileAdapter) Arm(filename string, content []byte) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx":
	default:
		return fmt.Errorf("capture: unsupported file type %q, use .csv or .xlsx", filepath.Ext(filename))
	}
	if len(content) == 0 {
		return fmt.Errorf("capture: empty file")
	}

	a.mu.Lock()
	a.filename = filename
	a.content = content
	a.armed = true
	a.mu.Unlock()
	return nil
}

// Armed reports whether a file is staged.
func (a *FileAdapter) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.armed
}

// Commit uploads the armed file. One gateway call; disarms regardless
// of outcome.
func (a *FileAdapter) Commit(ctx context.Context) (*api.Result, error) {
	a.mu.Lock()
	if !a.armed {
		a.mu.Unlock()
		return nil, ErrNotArmed
	}
	filename := a.filename
	content := a.content
	a.armed = false
	a.filename = ""
	a.content = nil
	a.mu.Unlock()

	return a.gw.SubmitFile(ctx, filename, bytes.NewReader(content))
}

// Cancel disarms without uploading.
func (a *FileAdapter) Cancel() {
	a.mu.Lock()
	a.armed = false
	a.filename = ""
	a.content = nil
	a.mu.Unlock()
}
