// Package rest exposes the read-mostly HTTP surface (spec.md §4.8): health,
// metrics, connection state, live state, games/snapshots/OHLC/god-candle
// history, PRNG tracking and the one mutating route, verify-on-demand.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dutchthenomad/rugfeed/internal/domain"
	"github.com/dutchthenomad/rugfeed/internal/prng"
	"github.com/dutchthenomad/rugfeed/internal/schema"
	"github.com/dutchthenomad/rugfeed/internal/telemetry"
)

// Store is every read the REST layer needs from persistence.
type Store interface {
	ListGames(ctx context.Context, limit int64) ([]domain.Game, error)
	GetGame(ctx context.Context, id string) (domain.Game, bool, error)
	ListOHLC(ctx context.Context, gameID string) ([]domain.GameIndex, error)
	ListGodCandles(ctx context.Context, gameID string, limit int64) ([]domain.GodCandle, error)
	GetPRNGTracking(ctx context.Context, gameID string) (domain.PRNGTrackingRecord, bool, error)
	ListPRNGTracking(ctx context.Context, limit int64) ([]domain.PRNGTrackingRecord, error)
	GetLiveState(ctx context.Context) (domain.LiveState, bool, error)
	ListSnapshots(ctx context.Context, limit int64) ([]domain.GameStateSnapshot, error)
	Ping(ctx context.Context) error
}

// ConnectionState is what the REST layer needs from the upstream consumer.
type ConnectionState interface {
	Connected() bool
	SocketID() string
}

// WSHandler upgrades a request to a streaming subscriber connection.
type WSHandler interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

// Server bundles every REST dependency and builds the mux.Router.
type Server struct {
	store    Store
	conn     ConnectionState
	ws       WSHandler
	registry *schema.Registry
	verifier *prng.Verifier
	storeTO  time.Duration
}

// NewServer wires a Server's collaborators.
func NewServer(store Store, conn ConnectionState, ws WSHandler, registry *schema.Registry, verifier *prng.Verifier, storeTimeout time.Duration) *Server {
	return &Server{store: store, conn: conn, ws: ws, registry: registry, verifier: verifier, storeTO: storeTimeout}
}

// Router builds the full route table under /api.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/readiness", s.handleReadiness).Methods(http.MethodGet)
	api.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	api.HandleFunc("/connection", s.handleConnection).Methods(http.MethodGet)
	api.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)
	api.HandleFunc("/snapshots", s.handleSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/games", s.handleGames).Methods(http.MethodGet)
	api.HandleFunc("/games/current", s.handleCurrentGame).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", s.handleGame).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/quality", s.handleGameQuality).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/verification", s.handleGameVerification).Methods(http.MethodGet)
	api.HandleFunc("/ohlc", s.handleOHLC).Methods(http.MethodGet)
	api.HandleFunc("/god-candles", s.handleGodCandles).Methods(http.MethodGet)
	api.HandleFunc("/prng/tracking", s.handlePRNGTracking).Methods(http.MethodGet)
	api.HandleFunc("/prng/verify/{id}", s.handlePRNGVerify).Methods(http.MethodPost)
	api.HandleFunc("/schemas", s.handleSchemas).Methods(http.MethodGet)
	api.HandleFunc("/schemas/{key}", s.handleSchema).Methods(http.MethodGet)
	api.HandleFunc("/ws/stream", s.ws.HandleWS)

	return r
}

func (s *Server) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.storeTO)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		telemetry.Warnf("rest: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryLimit(r *http.Request, fallback int64) int64 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	dbOk := s.store.Ping(ctx) == nil
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dbOk":              dbOk,
		"upstreamConnected": s.conn.Connected(),
		"time":              time.Now().UTC(),
		"dbPingMs":          telemetry.Metrics.DBPingMs.Value(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := &telemetry.Metrics
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"serviceUptimeSec":       telemetry.UptimeSeconds(),
		"currentSocketConnected": m.CurrentSocketConnected.Value() == 1,
		"socketId":               m.SocketID.Value(),
		"lastEventAt":            m.LastEventAt.Value(),
		"totalMessagesProcessed": m.TotalMessagesProcessed.Value(),
		"totalTrades":            m.TotalTrades.Value(),
		"totalGamesTracked":      m.TotalGamesTracked.Value(),
		"messagesPerSecond1m":    m.MessageRate.PerSecond(time.Minute),
		"messagesPerSecond5m":    m.MessageRate.PerSecond(5 * time.Minute),
		"wsSubscribers":          m.WSSubscribers.Value(),
		"wsSlowClientDrops":      m.WSSlowClientDrops.Value(),
		"upstreamDropped":        m.UpstreamDropped.Value(),
		"wsReconnects":           m.WSReconnects.Value(),
		"wsParseErrors":          m.WSParseErrors.Value(),
		"inboxOverflows":         m.InboxOverflows.Value(),
		"dbPingMs":               m.DBPingMs.Value(),
		"schemaValidation":       m.SchemaValidation.Snapshot(),
		"errorCounters":          m.ErrorCounters.Snapshot(),
	})
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connected": s.conn.Connected(),
		"socketId":  s.conn.SocketID(),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	ls, found, err := s.store.GetLiveState(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no live state recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, ls)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	snaps, err := s.store.ListSnapshots(ctx, queryLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	games, err := s.store.ListGames(ctx, queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	games, err := s.store.ListGames(ctx, 1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(games) == 0 {
		writeError(w, http.StatusNotFound, "no games tracked yet")
		return
	}
	writeJSON(w, http.StatusOK, games[0])
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	id := mux.Vars(r)["id"]
	g, found, err := s.store.GetGame(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGameQuality(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	id := mux.Vars(r)["id"]
	g, found, err := s.store.GetGame(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, g.Quality)
}

func (s *Server) handleGameVerification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	id := mux.Vars(r)["id"]
	rec, found, err := s.store.GetPRNGTracking(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no prng tracking record for this game")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleOHLC(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		writeError(w, http.StatusBadRequest, "gameId is required")
		return
	}
	indices, err := s.store.ListOHLC(ctx, gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	limit := queryLimit(r, int64(len(indices)))
	if limit > 0 && int64(len(indices)) > limit {
		indices = indices[:limit]
	}
	writeJSON(w, http.StatusOK, indices)
}

func (s *Server) handleGodCandles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	gameID := r.URL.Query().Get("gameId")
	candles, err := s.store.ListGodCandles(ctx, gameID, queryLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, candles)
}

func (s *Server) handlePRNGTracking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	recs, err := s.store.ListPRNGTracking(ctx, queryLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// handlePRNGVerify is the one mutating route: it runs a replay synchronously
// and returns the comparison, per spec.md §4.8.
func (s *Server) handlePRNGVerify(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	vd, status, err := s.verifier.Verify(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"gameId": id,
			"status": status,
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gameId":       id,
		"status":       status,
		"verification": vd,
	})
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	desc, ok := s.registry.Get(schema.Key(key))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown schema key")
		return
	}
	writeJSON(w, http.StatusOK, desc)
}
