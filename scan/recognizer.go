package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/inair/warehouse/config"
)

// Recognizer counts items on a captured photo. The actual vision model
// runs in an external service; tests substitute a deterministic fake.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (count int, err error)
}

// HTTPRecognizer forwards the photo to the recognition service.
type HTTPRecognizer struct {
	url    string
	client *http.Client
}

// NewHTTPRecognizer creates a recognizer pointed at cfg.URL.
func NewHTTPRecognizer(cfg config.RecognizerConfig) *HTTPRecognizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRecognizer{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

// Recognize posts the raw image and returns the detected item count.
func (r *HTTPRecognizer) Recognize(ctx context.Context, image []byte) (int, error) {
	if r.url == "" {
		return 0, fmt.Errorf("recognizer: no service configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(image))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("recognizer: status %d", resp.StatusCode)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Count, nil
}
