package capture_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/inair/warehouse/client/api"
	"github.com/inair/warehouse/client/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice counts outstanding leases so tests can probe that the
// camera is free at the right moments.
type fakeDevice struct {
	mu         sync.Mutex
	inUse      int
	photo      []byte
	photoErr   error
	code       string
	codeErr    error
	acquireErr error
}

func (d *fakeDevice) Acquire(context.Context) (capture.DeviceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	d.inUse++
	return &fakeHandle{d: d}, nil
}

func (d *fakeDevice) InUse() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inUse
}

type fakeHandle struct {
	d        *fakeDevice
	released bool
}

func (h *fakeHandle) Photo(context.Context) ([]byte, error) {
	return h.d.photo, h.d.photoErr
}

func (h *fakeHandle) Barcode(context.Context) (string, error) {
	return h.d.code, h.d.codeErr
}

func (h *fakeHandle) Release() {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if !h.released {
		h.released = true
		h.d.inUse--
	}
}

// fakeGateway records submissions and, when wired to a device, the
// number of outstanding camera leases at the moment each submission
// goes out.
type fakeGateway struct {
	mu            sync.Mutex
	manualEntries []api.ManualEntry
	barcodeCodes  []string
	photoFrames   [][]byte
	fileNames     []string
	fileBody      []byte

	result *api.Result
	err    error
	device *fakeDevice
	leases []int
}

func (g *fakeGateway) record(probe func()) (*api.Result, error) {
	g.mu.Lock()
	if g.device != nil {
		g.leases = append(g.leases, g.device.InUse())
	}
	probe()
	res, err := g.result, g.err
	g.mu.Unlock()
	if res == nil && err == nil {
		res = &api.Result{Status: api.Accepted}
	}
	return res, err
}

func (g *fakeGateway) SubmitManual(_ context.Context, entry api.ManualEntry) (*api.Result, error) {
	return g.record(func() { g.manualEntries = append(g.manualEntries, entry) })
}

func (g *fakeGateway) SubmitBarcode(_ context.Context, code string) (*api.Result, error) {
	return g.record(func() { g.barcodeCodes = append(g.barcodeCodes, code) })
}

func (g *fakeGateway) SubmitPhoto(_ context.Context, image []byte) (*api.Result, error) {
	return g.record(func() { g.photoFrames = append(g.photoFrames, image) })
}

func (g *fakeGateway) SubmitFile(_ context.Context, filename string, content io.Reader) (*api.Result, error) {
	body, _ := io.ReadAll(content)
	return g.record(func() {
		g.fileNames = append(g.fileNames, filename)
		g.fileBody = body
	})
}

func TestManualArmCommit(t *testing.T) {
	gw := &fakeGateway{}
	a := capture.NewManualAdapter(gw)

	require.False(t, a.Armed())
	require.NoError(t, a.Arm(api.ManualEntry{Name: "Widget", Quantity: 3, Location: "A1"}))
	assert.True(t, a.Armed())

	res, err := a.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, api.Accepted, res.Status)

	require.Len(t, gw.manualEntries, 1)
	assert.Equal(t, "Widget", gw.manualEntries[0].Name)
	assert.False(t, a.Armed(), "commit disarms")
}

func TestManualArmValidation(t *testing.T) {
	a := capture.NewManualAdapter(&fakeGateway{})
	assert.Error(t, a.Arm(api.ManualEntry{Quantity: 3}))
	assert.Error(t, a.Arm(api.ManualEntry{Name: "Widget", Quantity: 0}))
	assert.False(t, a.Armed())
}

func TestManualCommitWithoutArm(t *testing.T) {
	a := capture.NewManualAdapter(&fakeGateway{})
	_, err := a.Commit(context.Background())
	assert.ErrorIs(t, err, capture.ErrNotArmed)
}

func TestManualCancel(t *testing.T) {
	gw := &fakeGateway{}
	a := capture.NewManualAdapter(gw)
	require.NoError(t, a.Arm(api.ManualEntry{Name: "Widget", Quantity: 1}))
	a.Cancel()

	_, err := a.Commit(context.Background())
	assert.ErrorIs(t, err, capture.ErrNotArmed)
	assert.Empty(t, gw.manualEntries)
}

func TestManualCommitDisarmsOnError(t *testing.T) {
	gw := &fakeGateway{err: errors.New("boom")}
	a := capture.NewManualAdapter(gw)
	require.NoError(t, a.Arm(api.ManualEntry{Name: "Widget", Quantity: 1}))

	_, err := a.Commit(context.Background())
	require.Error(t, err)

	// Retrying requires an explicit re-arm, never a hidden double send.
	_, err = a.Commit(context.Background())
	assert.ErrorIs(t, err, capture.ErrNotArmed)
	assert.Len(t, gw.manualEntries, 1)
}

func TestFileArmRejectsBadExtension(t *testing.T) {
	a := capture.NewFileAdapter(&fakeGateway{})
	assert.Error(t, a.Arm("stock.pdf", []byte("x")))
	assert.Error(t, a.Arm("stock", []byte("x")))
	assert.Error(t, a.Arm("stock.csv", nil))
	assert.False(t, a.Armed())
}

func TestFileArmCommit(t *testing.T) {
	gw := &fakeGateway{}
	a := capture.NewFileAdapter(gw)

	require.NoError(t, a.Arm("stock.CSV", []byte("name,quantity\nWidget,3\n")))
	require.True(t, a.Armed())

	res, err := a.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, api.Accepted, res.Status)

	require.Len(t, gw.fileNames, 1)
	assert.Equal(t, "stock.CSV", gw.fileNames[0])
	assert.Contains(t, string(gw.fileBody), "Widget")
	assert.False(t, a.Armed())
}

func TestPhotoCaptureReleasesBeforeSubmit(t *testing.T) {
	dev := &fakeDevice{photo: []byte("frame")}
	gw := &fakeGateway{device: dev}
	a := capture.NewPhotoAdapter(gw, dev)

	res, err := a.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, api.Accepted, res.Status)

	require.Len(t, gw.leases, 1)
	assert.Zero(t, gw.leases[0], "camera must be free before the upload starts")
	assert.Zero(t, dev.InUse())
}

func TestPhotoCaptureReleasesOnError(t *testing.T) {
	dev := &fakeDevice{photoErr: errors.New("sensor fault")}
	gw := &fakeGateway{device: dev}
	a := capture.NewPhotoAdapter(gw, dev)

	_, err := a.Capture(context.Background())
	require.Error(t, err)
	assert.Zero(t, dev.InUse())
	assert.Empty(t, gw.photoFrames, "nothing submitted on a capture error")
}

func TestBarcodeScanOne(t *testing.T) {
	dev := &fakeDevice{code: "111"}
	gw := &fakeGateway{device: dev}
	a := capture.NewBarcodeAdapter(gw, dev, nil)

	require.NoError(t, a.Open(context.Background()))
	assert.True(t, a.Active())
	assert.Equal(t, 1, dev.InUse())

	res, err := a.ScanOne(context.Background())
	require.NoError(t, err)
	assert.Equal(t, api.Accepted, res.Status)

	require.Len(t, gw.leases, 1)
	assert.Zero(t, gw.leases[0], "capture stops before the submission goes out")
	assert.False(t, a.Active())
	assert.Zero(t, dev.InUse())
}

func TestBarcodeScanSessionSubmitsOnce(t *testing.T) {
	dev := &fakeDevice{code: "111"}
	gw := &fakeGateway{device: dev}
	a := capture.NewBarcodeAdapter(gw, dev, nil)

	require.NoError(t, a.Open(context.Background()))
	_, err := a.ScanOne(context.Background())
	require.NoError(t, err)

	_, err = a.ScanOne(context.Background())
	require.Error(t, err)
	assert.Len(t, gw.barcodeCodes, 1)
}

func TestBarcodeScanWithoutOpen(t *testing.T) {
	a := capture.NewBarcodeAdapter(&fakeGateway{}, &fakeDevice{}, nil)
	_, err := a.ScanOne(context.Background())
	assert.ErrorIs(t, err, capture.ErrNotOpen)
}

func TestBarcodeUnknownCodeFallsBackOnce(t *testing.T) {
	dev := &fakeDevice{code: "NOPE"}
	gw := &fakeGateway{device: dev, result: &api.Result{Status: api.NeedsFallback}}

	var fallbacks []string
	a := capture.NewBarcodeAdapter(gw, dev, func(code string) {
		fallbacks = append(fallbacks, code)
	})

	require.NoError(t, a.Open(context.Background()))
	res, err := a.ScanOne(context.Background())
	require.NoError(t, err)
	assert.Equal(t, api.NeedsFallback, res.Status)

	require.Len(t, fallbacks, 1, "unknown code routes to manual entry exactly once")
	assert.Equal(t, "NOPE", fallbacks[0])
	assert.Zero(t, dev.InUse())
}

func TestBarcodeAcceptedDoesNotFallBack(t *testing.T) {
	dev := &fakeDevice{code: "111"}
	gw := &fakeGateway{device: dev}

	called := false
	a := capture.NewBarcodeAdapter(gw, dev, func(string) { called = true })

	require.NoError(t, a.Open(context.Background()))
	_, err := a.ScanOne(context.Background())
	require.NoError(t, err)
	assert.False(t, called)
}

func TestBarcodeDecodeErrorReleases(t *testing.T) {
	dev := &fakeDevice{codeErr: errors.New("decode timeout")}
	gw := &fakeGateway{device: dev}
	a := capture.NewBarcodeAdapter(gw, dev, nil)

	require.NoError(t, a.Open(context.Background()))
	_, err := a.ScanOne(context.Background())
	require.Error(t, err)
	assert.Zero(t, dev.InUse())
	assert.Empty(t, gw.barcodeCodes)
}

func TestBarcodeCloseIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	a := capture.NewBarcodeAdapter(&fakeGateway{}, dev, nil)

	require.NoError(t, a.Open(context.Background()))
	a.Close()
	a.Close()
	assert.Zero(t, dev.InUse())
}

func TestSurfaceModeSwitchReleasesCamera(t *testing.T) {
	dev := &fakeDevice{code: "111"}
	gw := &fakeGateway{device: dev}
	s := capture.NewSurface(gw, dev, nil)

	require.NoError(t, s.OpenBarcode(context.Background()))
	require.Equal(t, capture.ModeBarcodeScan, s.Mode())
	require.Equal(t, 1, dev.InUse())

	require.NoError(t, s.SetMode(capture.ModeManual))
	assert.Zero(t, dev.InUse(), "leaving barcode mode must release the camera")
}

func TestSurfaceCloseReleasesEverything(t *testing.T) {
	dev := &fakeDevice{code: "111"}
	gw := &fakeGateway{device: dev}
	s := capture.NewSurface(gw, dev, nil)

	require.NoError(t, s.Manual.Arm(api.ManualEntry{Name: "Widget", Quantity: 1}))
	require.NoError(t, s.OpenBarcode(context.Background()))

	s.Close()
	assert.Equal(t, capture.ModeNone, s.Mode())
	assert.Zero(t, dev.InUse())
	assert.False(t, s.Barcode.Active())
}

func TestSurfaceRejectsInvalidMode(t *testing.T) {
	s := capture.NewSurface(&fakeGateway{}, &fakeDevice{}, nil)
	assert.Error(t, s.SetMode(capture.Mode(99)))
	assert.Equal(t, capture.ModeNone, s.Mode())
}

func TestSurfaceFallbackSwitchesToManual(t *testing.T) {
	dev := &fakeDevice{code: "NOPE"}
	gw := &fakeGateway{device: dev, result: &api.Result{Status: api.NeedsFallback}}

	var modeAtFallback capture.Mode
	var s *capture.Surface
	s = capture.NewSurface(gw, dev, func(code string) {
		modeAtFallback = s.Mode()
	})

	require.NoError(t, s.OpenBarcode(context.Background()))
	res, err := s.Barcode.ScanOne(context.Background())
	require.NoError(t, err)
	require.Equal(t, api.NeedsFallback, res.Status)

	// The surface is already in manual mode when the UI callback runs,
	// so it can pre-fill the form directly.
	assert.Equal(t, capture.ModeManual, modeAtFallback)
	assert.Equal(t, capture.ModeManual, s.Mode())
	assert.Zero(t, dev.InUse())
}
