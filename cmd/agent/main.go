package main

import (
	"agenthelper/cmd/internal/config"
	"agenthelper/cmd/internal/infrastructure/presenceclient"
	"agenthelper/cmd/internal/monitor"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
)

const beaconFlushTimeout = 3 * time.Second

// The agent reports a terminal session's presence. Every line typed counts
// as keyboard activity, ":hide", ":show", ":unload" and ":quit" simulate the
// matching page events.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("DEBUG") != "" {
		log.SetLevel(log.DEBUG)
	}

	if err := config.LoadEnv(ctx); err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}

	cfg, err := config.LoadAgent()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	host, _ := os.Hostname()
	cfg.Monitor.UserAgent = "agenthelper-agent/" + host
	cfg.Monitor.PageTitle = "terminal"

	client := presenceclient.NewClient(cfg.ServerURL, presenceclient.WithToken(cfg.Token))
	emitter := monitor.NewEmitter()
	mon := monitor.New(cfg.UserID, cfg.Monitor, client, emitter)

	if !mon.Start() {
		log.Warnf("presence reporting disabled (user=%d, enabled=%t)", cfg.UserID, cfg.Monitor.Enabled)
		return
	}

	quit, err := monitor.FeedLines(ctx, os.Stdin, emitter)
	if err != nil {
		log.Errorf("failed to read input: %v", err)
	}
	if !quit {
		if ctx.Err() == nil {
			log.Info("input closed, reporting until interrupted")
			<-ctx.Done()
		}
		// killed like a closing tab, try the beacon first
		emitter.Emit(monitor.UnloadEvent())
	}

	mon.Stop()
	if !client.Flush(beaconFlushTimeout) {
		log.Warn("some unload beacons were still in flight")
	}
}
