package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inair/warehouse/client/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newServer(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return api.New(srv.URL, staticToken("tok-1"))
}

func TestSubmitWithoutTokenFailsBeforeNetwork(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits++
	}))
	t.Cleanup(srv.Close)

	c := api.New(srv.URL, staticToken(""))
	_, err := c.SubmitManual(context.Background(), api.ManualEntry{Name: "Widget", Quantity: 1})
	assert.ErrorIs(t, err, api.ErrUnauthenticated)

	_, err = c.SubmitBarcode(context.Background(), "111")
	assert.ErrorIs(t, err, api.ErrUnauthenticated)

	_, err = c.SubmitFile(context.Background(), "stock.csv", strings.NewReader("x"))
	assert.ErrorIs(t, err, api.ErrUnauthenticated)

	_, err = c.FetchInventory(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthenticated)

	assert.Zero(t, hits, "no request may leave the client without a token")
}

func TestSubmitManualAccepted(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inventory/add", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var entry api.ManualEntry
		require.NoError(t, json.NewDecoder(r.Body).Decode(&entry))
		assert.Equal(t, "Widget", entry.Name)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"item":   map[string]interface{}{"name": "Widget", "quantity": 3},
		})
	})

	res, err := c.SubmitManual(context.Background(), api.ManualEntry{Name: "Widget", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, api.Accepted, res.Status)
	require.NotNil(t, res.Item)
	assert.Equal(t, 3, res.Item.Quantity)
}

func TestSubmitManualRejected(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "quantity must be at least 1"})
	})

	res, err := c.SubmitManual(context.Background(), api.ManualEntry{Name: "Widget", Quantity: 0})
	require.NoError(t, err, "a rejection is an outcome, not a transport error")
	assert.Equal(t, api.Rejected, res.Status)
	assert.Contains(t, res.Reason, "quantity")
}

func TestSubmitBarcodeNotFoundNeedsFallback(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "not_found"})
	})

	res, err := c.SubmitBarcode(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Equal(t, api.NeedsFallback, res.Status)
}

func TestSubmitBarcodeFound(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "found",
			"item":   map[string]interface{}{"name": "Cola", "barcode": "111"},
		})
	})

	res, err := c.SubmitBarcode(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, api.Accepted, res.Status)
	require.NotNil(t, res.Item)
	assert.Equal(t, "Cola", res.Item.Name)
}

func TestSubmitPhotoFailureNeedsFallback(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "failure"})
	})

	res, err := c.SubmitPhoto(context.Background(), []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, api.NeedsFallback, res.Status)
}

func TestSubmitPhotoSuccess(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["photo"])
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "count": 7})
	})

	res, err := c.SubmitPhoto(context.Background(), []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, api.Accepted, res.Status)
	assert.Equal(t, 7, res.Count)
}

func TestSubmitFile(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "stock.csv", header.Filename)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "applied": 2})
	})

	res, err := c.SubmitFile(context.Background(), "stock.csv", strings.NewReader("name,quantity\nWidget,3\n"))
	require.NoError(t, err)
	assert.Equal(t, api.Accepted, res.Status)
	assert.Equal(t, 2, res.Count)
}

func TestExpiredTokenMapsToErrUnauthenticated(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.SubmitBarcode(context.Background(), "111")
	assert.ErrorIs(t, err, api.ErrUnauthenticated)

	_, err = c.FetchInventory(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthenticated)
}

func TestFetchInventory(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inventory", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"inventory": []map[string]interface{}{
				{"name": "Widget", "sku": "W1", "quantity": 3},
				{"name": "Gadget", "sku": "G1", "quantity": 9},
			},
		})
	})

	items, err := c.FetchInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Widget", items[0].Name)
}

func TestFetchDrones(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/drones", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"drones": []map[string]interface{}{
				{"id": 1, "name": "hawk-1", "status": "flying", "battery": 87.5},
			},
		})
	})

	drones, err := c.FetchDrones(context.Background())
	require.NoError(t, err)
	require.Len(t, drones, 1)
	assert.Equal(t, "hawk-1", drones[0].Name)
	assert.InDelta(t, 87.5, drones[0].Battery, 0.01)
}

func TestLogin(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "pass1234" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "fresh-token"})
	})

	token, err := c.Login(context.Background(), "alice", "pass1234")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	_, err = c.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, api.ErrUnauthenticated)
}
