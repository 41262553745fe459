package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"nhooyr.io/websocket"

	"github.com/sw33tLie/mintwatch/internal/utils"
	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/chain"
	"github.com/sw33tLie/mintwatch/pkg/eligibility"
	"github.com/sw33tLie/mintwatch/pkg/reconcile"
)

const wsWriteTimeout = 10 * time.Second

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

type mintResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.opts.Reconciler.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no snapshot yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Reconciler.Countdown())
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Alerts.Current())
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.opts.Alerts.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	commitment, err := chain.ParseCommitment(r.URL.Query().Get("commitment"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.opts.Reconciler.Refresh(r.Context(), commitment); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	s.handleSnapshot(w, r)
}

// handleMint starts a mint in the background. Its outcome is reported
// through the alert endpoints and the stream.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	rec := s.opts.Reconciler
	if !rec.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: reconcile.ErrNotReady.Error()})
		return
	}
	if rec.IsMinting() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: reconcile.ErrMintInProgress.Error()})
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		return
	}

	s.mints.Add(1)
	go func() {
		defer s.mints.Done()
		ctx, cancel := context.WithTimeout(s.base, s.opts.MintTimeout)
		defer cancel()
		if err := rec.SubmitMint(ctx, nil, nil); err != nil {
			utils.Log.Warnf("Mint requested over the API failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, mintResponse{Status: "submitted"})
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 50
	}
	return limit
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if s.opts.DB == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history is not enabled"})
		return
	}
	changes, err := s.opts.DB.ListRecentChanges(r.Context(), limitParam(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if s.opts.DB == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history is not enabled"})
		return
	}
	attempts, err := s.opts.DB.ListMintAttempts(r.Context(), limitParam(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

// streamEvent is one websocket message. Exactly one of Snapshot and Alert
// is set.
type streamEvent struct {
	Type     string                `json:"type"`
	Snapshot *eligibility.Snapshot `json:"snapshot,omitempty"`
	Alert    *alert.Alert          `json:"alert,omitempty"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	// Reads are only needed to notice the client going away.
	ctx := conn.CloseRead(r.Context())
	if err := s.stream(ctx, conn); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && !errors.Is(err, context.Canceled) {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn) error {
	snapshots, unsubSnapshots := s.opts.Reconciler.Subscribe(8)
	defer unsubSnapshots()
	alerts, unsubAlerts := s.opts.Alerts.Subscribe(8)
	defer unsubAlerts()

	if snap := s.opts.Reconciler.Snapshot(); snap != nil {
		if err := writeEvent(ctx, conn, streamEvent{Type: "snapshot", Snapshot: snap}); err != nil {
			return err
		}
	}
	if current := s.opts.Alerts.Current(); current.Open {
		if err := writeEvent(ctx, conn, streamEvent{Type: "alert", Alert: &current}); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			if err := writeEvent(ctx, conn, streamEvent{Type: "snapshot", Snapshot: &snap}); err != nil {
				return err
			}
		case a, ok := <-alerts:
			if !ok {
				return nil
			}
			if err := writeEvent(ctx, conn, streamEvent{Type: "alert", Alert: &a}); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev streamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

