// Package api is the dashboard's HTTP client: the submission gateway
// for captured entries and the refetch calls backing the live mirror.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrUnauthenticated is returned before any network I/O when no bearer
// token is available, and for 401 responses. The UI reacts by routing
// to login.
var ErrUnauthenticated = errors.New("api: not authenticated")

// TokenSource supplies the current bearer token. Empty means logged out.
type TokenSource interface {
	Token() string
}

// Client talks to the warehouse backend.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// New creates a Client. baseURL has no trailing slash,
// e.g. "http://localhost:8000".
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Submission outcome statuses.
type Status int

const (
	// Accepted: the backend applied the entry.
	Accepted Status = iota
	// Rejected: the backend refused the entry; Reason says why.
	Rejected
	// NeedsFallback: a domain miss (unknown barcode, failed photo
	// recognition) that should route the operator to manual entry.
	NeedsFallback
)

// Item is the canonical inventory entry echoed back on acceptance.
type Item struct {
	Barcode     string     `json:"barcode"`
	Name        string     `json:"name"`
	SKU         string     `json:"sku"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Quantity    int        `json:"quantity"`
	LastScanned *time.Time `json:"last_scanned"`
}

// Result is the outcome of one submission.
type Result struct {
	Status Status
	Item   *Item  // set when Accepted and the backend echoed an item
	Count  int    // photo submissions: recognized item count
	Reason string // set when Rejected
}

// ManualEntry is a hand-typed stock entry.
type ManualEntry struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Location string `json:"location,omitempty"`
}

// SubmitManual posts a manual entry. Exactly one HTTP call; no retry.
func (c *Client) SubmitManual(ctx context.Context, entry ManualEntry) (*Result, error) {
	var resp struct {
		Status string `json:"status"`
		Item   *Item  `json:"item"`
		Error  string `json:"error"`
	}
	code, err := c.postJSON(ctx, "/api/inventory/add", entry, &resp)
	if err != nil {
		return nil, err
	}
	if code == http.StatusBadRequest {
		return &Result{Status: Rejected, Reason: resp.Error}, nil
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("api: add returned %d", code)
	}
	return &Result{Status: Accepted, Item: resp.Item}, nil
}

// SubmitBarcode posts one decoded barcode. A backend not_found comes
// back as NeedsFallback, never as an error.
func (c *Client) SubmitBarcode(ctx context.Context, code string) (*Result, error) {
	var resp struct {
		Status string `json:"status"`
		Item   *Item  `json:"item"`
		Error  string `json:"error"`
	}
	httpCode, err := c.postJSON(ctx, "/api/inventory/scan_barcode", map[string]string{"code": code}, &resp)
	if err != nil {
		return nil, err
	}
	if httpCode == http.StatusBadRequest {
		return &Result{Status: Rejected, Reason: resp.Error}, nil
	}
	if httpCode != http.StatusOK {
		return nil, fmt.Errorf("api: scan_barcode returned %d", httpCode)
	}
	if resp.Status == "not_found" {
		return &Result{Status: NeedsFallback}, nil
	}
	return &Result{Status: Accepted, Item: resp.Item}, nil
}

// SubmitPhoto posts a captured photo for recognition. A recognition
// failure comes back as NeedsFallback.
func (c *Client) SubmitPhoto(ctx context.Context, image []byte) (*Result, error) {
	body := map[string]string{"photo": base64.StdEncoding.EncodeToString(image)}
	var resp struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
		Error  string `json:"error"`
	}
	code, err := c.postJSON(ctx, "/api/inventory/scan_photo", body, &resp)
	if err != nil {
		return nil, err
	}
	if code == http.StatusBadRequest {
		return &Result{Status: Rejected, Reason: resp.Error}, nil
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("api: scan_photo returned %d", code)
	}
	if resp.Status != "success" {
		return &Result{Status: NeedsFallback}, nil
	}
	return &Result{Status: Accepted, Count: resp.Count}, nil
}

// SubmitFile uploads a bulk stock file (.csv or .xlsx).
func (c *Client) SubmitFile(ctx context.Context, filename string, content io.Reader) (*Result, error) {
	token := c.tokens.Token()
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	part, err := mp.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, err
	}
	if err := mp.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/inventory/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mp.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var resp struct {
		Status  string `json:"status"`
		Applied int    `json:"applied"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}
	switch httpResp.StatusCode {
	case http.StatusOK:
		return &Result{Status: Accepted, Count: resp.Applied}, nil
	case http.StatusBadRequest:
		return &Result{Status: Rejected, Reason: resp.Error}, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthenticated
	default:
		return nil, fmt.Errorf("api: upload returned %d", httpResp.StatusCode)
	}
}

// FetchInventory pulls the full inventory list.
func (c *Client) FetchInventory(ctx context.Context) ([]Item, error) {
	var resp struct {
		Inventory []Item `json:"inventory"`
	}
	if err := c.getJSON(ctx, "/api/inventory", &resp); err != nil {
		return nil, err
	}
	return resp.Inventory, nil
}

// DroneRecord mirrors one fleet drone as served by the backend.
type DroneRecord struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Model     string     `json:"model"`
	Status    string     `json:"status"`
	PositionX float64    `json:"position_x"`
	PositionY float64    `json:"position_y"`
	PositionZ float64    `json:"position_z"`
	Battery   float64    `json:"battery"`
	Heading   float64    `json:"heading"`
	LastSeen  *time.Time `json:"last_seen"`
}

// FetchDrones pulls the full drone list.
func (c *Client) FetchDrones(ctx context.Context) ([]DroneRecord, error) {
	var resp struct {
		Drones []DroneRecord `json:"drones"`
	}
	if err := c.getJSON(ctx, "/api/drones", &resp); err != nil {
		return nil, err
	}
	return resp.Drones, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized {
		return "", ErrUnauthenticated
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api: login returned %d", httpResp.StatusCode)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// postJSON performs one authenticated POST. The status code is handed
// back so callers can map 400s to domain outcomes.
func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) (int, error) {
	token := c.tokens.Token()
	if token == "" {
		return 0, ErrUnauthenticated
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, ErrUnauthenticated
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	token := c.tokens.Token()
	if token == "" {
		return ErrUnauthenticated
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api: GET %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
