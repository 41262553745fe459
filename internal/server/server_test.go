package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/eligibility"
	"github.com/sw33tLie/mintwatch/pkg/storage"
)

type fakeReconciler struct {
	mu          sync.Mutex
	snap        *eligibility.Snapshot
	ready       bool
	minting     bool
	refreshErr  error
	commitments []rpc.Commitment
	mints       chan struct{}
	subs        chan eligibility.Snapshot
}

func newFakeReconciler() *fakeReconciler {
	return &fakeReconciler{
		snap:  &eligibility.Snapshot{IsActive: true, ItemsRemaining: 240},
		ready: true,
		mints: make(chan struct{}, 4),
		subs:  make(chan eligibility.Snapshot, 4),
	}
}

func (f *fakeReconciler) Snapshot() *eligibility.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeReconciler) Countdown() eligibility.Countdown {
	return eligibility.Countdown{Phase: eligibility.PhaseSaleEnd, Remaining: time.Minute}
}

func (f *fakeReconciler) IsMinting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minting
}

func (f *fakeReconciler) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeReconciler) Refresh(_ context.Context, c rpc.Commitment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitments = append(f.commitments, c)
	return f.refreshErr
}

func (f *fakeReconciler) SubmitMint(context.Context, [][]types.Instruction, [][]types.Instruction) error {
	f.mints <- struct{}{}
	return nil
}

func (f *fakeReconciler) Subscribe(int) (<-chan eligibility.Snapshot, func()) {
	return f.subs, func() {}
}

func newTestServer(t *testing.T, opts Options) (*Server, *fakeReconciler, *alert.Notifier) {
	t.Helper()
	rec := newFakeReconciler()
	alerts := alert.NewNotifier()
	opts.Reconciler = rec
	opts.Alerts = alerts
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.NewRegistry()
	}
	s := New(opts)
	t.Cleanup(s.Close)
	return s, rec, alerts
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSnapshotAndCountdown(t *testing.T) {
	s, rec, _ := newTestServer(t, Options{})

	rr := do(t, s.Handler(), http.MethodGet, "/api/snapshot")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap eligibility.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.Equal(t, uint64(240), snap.ItemsRemaining)

	rr = do(t, s.Handler(), http.MethodGet, "/api/countdown")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"phase":"sale_end"`)

	rec.mu.Lock()
	rec.snap = nil
	rec.mu.Unlock()
	rr = do(t, s.Handler(), http.MethodGet, "/api/snapshot")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAlertAndDismiss(t *testing.T) {
	s, _, alerts := newTestServer(t, Options{})
	alerts.Publish(alert.Fatal("broken rpc"))

	rr := do(t, s.Handler(), http.MethodGet, "/api/alert")
	require.Equal(t, http.StatusOK, rr.Code)
	var got alert.Alert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "broken rpc", got.Message)
	require.True(t, got.Open)

	rr = do(t, s.Handler(), http.MethodPost, "/api/alert/dismiss")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.False(t, alerts.Current().Open)
}

func TestRefresh(t *testing.T) {
	s, rec, _ := newTestServer(t, Options{})

	rr := do(t, s.Handler(), http.MethodPost, "/api/refresh?commitment=processed")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []rpc.Commitment{rpc.CommitmentProcessed}, rec.commitments)

	rr = do(t, s.Handler(), http.MethodPost, "/api/refresh?commitment=whenever")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rec.refreshErr = context.DeadlineExceeded
	rr = do(t, s.Handler(), http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestMint(t *testing.T) {
	s, rec, _ := newTestServer(t, Options{MintPerMinute: 1})

	rr := do(t, s.Handler(), http.MethodPost, "/api/mint")
	require.Equal(t, http.StatusAccepted, rr.Code)
	select {
	case <-rec.mints:
	case <-time.After(time.Second):
		t.Fatal("mint was not submitted")
	}

	rr = do(t, s.Handler(), http.MethodPost, "/api/mint")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	rec.mu.Lock()
	rec.minting = true
	rec.mu.Unlock()
	rr = do(t, s.Handler(), http.MethodPost, "/api/mint")
	require.Equal(t, http.StatusConflict, rr.Code)

	rec.mu.Lock()
	rec.ready = false
	rec.mu.Unlock()
	rr = do(t, s.Handler(), http.MethodPost, "/api/mint")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestBasicAuth(t *testing.T) {
	s, _, _ := newTestServer(t, Options{Username: "admin", Password: "secret"})

	rr := do(t, s.Handler(), http.MethodGet, "/api/snapshot")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	req.SetBasicAuth("admin", "secret")
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t, Options{})
	require.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/api/changes").Code)
	require.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/api/attempts").Code)

	db, err := storage.Open(filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.RecordSnapshot(context.Background(), "cm", "w", eligibility.Snapshot{ItemsRemaining: 3})
	require.NoError(t, err)

	s, _, _ = newTestServer(t, Options{DB: db})
	rr := do(t, s.Handler(), http.MethodGet, "/api/changes?limit=2")
	require.Equal(t, http.StatusOK, rr.Code)
	var changes []storage.Change
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &changes))
	require.Len(t, changes, 2)

	rr = do(t, s.Handler(), http.MethodGet, "/api/attempts")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "mintwatch_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s, _, _ := newTestServer(t, Options{Gatherer: reg})
	rr := do(t, s.Handler(), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "mintwatch_test_total 1")
}

func TestStream(t *testing.T) {
	s, rec, alerts := newTestServer(t, Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/stream", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() streamEvent {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var ev streamEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	}

	ev := read()
	require.Equal(t, "snapshot", ev.Type)
	require.Equal(t, uint64(240), ev.Snapshot.ItemsRemaining)

	rec.subs <- eligibility.Snapshot{ItemsRemaining: 239}
	ev = read()
	require.Equal(t, "snapshot", ev.Type)
	require.Equal(t, uint64(239), ev.Snapshot.ItemsRemaining)

	alerts.Publish(alert.Success(alert.MsgMintSucceeded))
	ev = read()
	require.Equal(t, "alert", ev.Type)
	require.Equal(t, alert.MsgMintSucceeded, ev.Alert.Message)
}
