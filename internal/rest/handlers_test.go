package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

type stubStore struct {
	games    []domain.Game
	game     domain.Game
	gameOK   bool
	liveOK   bool
	pingErr  error
}

func (s *stubStore) ListGames(ctx context.Context, limit int64) ([]domain.Game, error) {
	return s.games, nil
}
func (s *stubStore) GetGame(ctx context.Context, id string) (domain.Game, bool, error) {
	return s.game, s.gameOK, nil
}
func (s *stubStore) ListOHLC(ctx context.Context, gameID string) ([]domain.GameIndex, error) {
	return nil, nil
}
func (s *stubStore) ListGodCandles(ctx context.Context, gameID string, limit int64) ([]domain.GodCandle, error) {
	return nil, nil
}
func (s *stubStore) GetPRNGTracking(ctx context.Context, gameID string) (domain.PRNGTrackingRecord, bool, error) {
	return domain.PRNGTrackingRecord{}, false, nil
}
func (s *stubStore) ListPRNGTracking(ctx context.Context, limit int64) ([]domain.PRNGTrackingRecord, error) {
	return nil, nil
}
func (s *stubStore) GetLiveState(ctx context.Context) (domain.LiveState, bool, error) {
	return domain.LiveState{GameID: "g1"}, s.liveOK, nil
}
func (s *stubStore) ListSnapshots(ctx context.Context, limit int64) ([]domain.GameStateSnapshot, error) {
	return nil, nil
}
func (s *stubStore) Ping(ctx context.Context) error { return s.pingErr }

type stubConn struct{ connected bool }

func (c stubConn) Connected() bool  { return c.connected }
func (c stubConn) SocketID() string { return "sock-1" }

type stubWS struct{}

func (stubWS) HandleWS(w http.ResponseWriter, r *http.Request) {}

func newTestServer(store *stubStore) *Server {
	return NewServer(store, stubConn{connected: true}, stubWS{}, nil, nil, time.Second)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", body["status"])
	}
}

func TestHandleGameNotFound(t *testing.T) {
	srv := newTestServer(&stubStore{gameOK: false})
	req := httptest.NewRequest(http.MethodGet, "/api/games/missing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleGameFound(t *testing.T) {
	srv := newTestServer(&stubStore{gameOK: true, game: domain.Game{ID: "g1", Phase: domain.PhaseActive}})
	req := httptest.NewRequest(http.MethodGet, "/api/games/g1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var g domain.Game
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.ID != "g1" {
		t.Fatalf("id = %q, want g1", g.ID)
	}
}

func TestHandleOHLCRequiresGameID(t *testing.T) {
	srv := newTestServer(&stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/ohlc", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleLiveNotFound(t *testing.T) {
	srv := newTestServer(&stubStore{liveOK: false})
	req := httptest.NewRequest(http.MethodGet, "/api/live", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleReadiness(t *testing.T) {
	srv := newTestServer(&stubStore{pingErr: nil})
	req := httptest.NewRequest(http.MethodGet, "/api/readiness", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["dbOk"] != true {
		t.Fatalf("dbOk = %v, want true", body["dbOk"])
	}
	if body["upstreamConnected"] != true {
		t.Fatalf("upstreamConnected = %v, want true", body["upstreamConnected"])
	}
}
