// Package process wires every component into one running service and owns
// its boot and shutdown sequence, adapted from the teacher's sport-process
// wiring (spec.md §5).
package process

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dutchthenomad/rugfeed/internal/adapters/inbound/rugsfeed"
	"github.com/dutchthenomad/rugfeed/internal/broadcast"
	"github.com/dutchthenomad/rugfeed/internal/config"
	"github.com/dutchthenomad/rugfeed/internal/gametrack"
	"github.com/dutchthenomad/rugfeed/internal/ingest"
	"github.com/dutchthenomad/rugfeed/internal/persistence/mongo"
	"github.com/dutchthenomad/rugfeed/internal/prng"
	"github.com/dutchthenomad/rugfeed/internal/rest"
	"github.com/dutchthenomad/rugfeed/internal/schema"
	"github.com/dutchthenomad/rugfeed/internal/telemetry"
)

// Run boots the service: load config, connect to the document store, wire
// the upstream consumer through the router, tracker and broadcaster, start
// the REST/WebSocket listener, then block until a shutdown signal arrives.
func Run() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("rugfeed: starting")

	registry, err := schema.Load(cfg.SchemaDir)
	if err != nil {
		telemetry.Errorf("schema: %v", err)
		os.Exit(1)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := mongo.Connect(connectCtx, cfg.MongoURL, cfg.DBName)
	cancelConnect()
	if err != nil {
		telemetry.Errorf("mongo: connect: %v", err)
		os.Exit(1)
	}

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	err = store.EnsureIndexes(indexCtx, mongo.Retention{
		SnapshotsDays: cfg.RetentionSnapshotsDays,
		EventsDays:    cfg.RetentionEventsDays,
		TicksDays:     cfg.RetentionTicksDays,
		IndicesDays:   cfg.RetentionIndicesDays,
	})
	cancelIndex()
	if err != nil {
		telemetry.Errorf("mongo: ensure indexes: %v", err)
		os.Exit(1)
	}
	store.StartWorkers(cfg.PersistWorkers)

	broadcaster := broadcast.NewServer(cfg.BroadcastBuffer, cfg.HeartbeatEvery)
	tracker := gametrack.NewTracker(store)
	router := ingest.NewRouter(registry, store, tracker, broadcaster)
	client := rugsfeed.NewClient(cfg.UpstreamURL, cfg.UpstreamQueueSize, cfg.MaxReconnects, store)
	verifier := prng.NewVerifier(store, float64(cfg.VerifyWorkers), cfg.VerifyWorkers)

	restServer := rest.NewServer(store, client, broadcaster, registry, verifier, cfg.StoreTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.ConnectWithRetry(ctx)
	go router.Run(ctx, client.Frames())
	go broadcaster.Run(ctx)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: restServer.Router(),
	}
	go func() {
		telemetry.Infof("rugfeed: listening on %s", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Errorf("http: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("rugfeed: shutting down")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownDrain)
	_ = httpServer.Shutdown(shutdownCtx)
	cancelShutdown()

	tracker.Close()
	store.Drain(cfg.ShutdownDrain)

	if err := store.Disconnect(context.Background()); err != nil {
		telemetry.Warnf("mongo: disconnect: %v", err)
	}

	telemetry.Infof("rugfeed: shutdown complete messages=%d trades=%d games=%d",
		telemetry.Metrics.TotalMessagesProcessed.Value(),
		telemetry.Metrics.TotalTrades.Value(),
		telemetry.Metrics.TotalGamesTracked.Value(),
	)
}
