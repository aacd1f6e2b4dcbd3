// Command ingressd runs the connection-ingress and session state
// machine service: it accepts raw TCP connections, speaks enough of
// the Java Edition handshake/status/login handshake to bind an
// identity, and hands everything past that point to an injected
// gameplay handler. Startup loads config, sets up slog, and runs its
// collaborators under an errgroup, shutting down on signal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/riftengine/ingress/internal/compose"
	"github.com/riftengine/ingress/internal/config"
	"github.com/riftengine/ingress/internal/gameplay"
	"github.com/riftengine/ingress/internal/identity"
	"github.com/riftengine/ingress/internal/ignmap"
	"github.com/riftengine/ingress/internal/ingress"
	"github.com/riftengine/ingress/internal/proxyfront"
	"github.com/riftengine/ingress/internal/removal"
	"github.com/riftengine/ingress/internal/session"
	"github.com/riftengine/ingress/internal/simulation"
	"github.com/riftengine/ingress/internal/skin"
)

const defaultConfigPath = "config/ingressd.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := defaultConfigPath
	if p := os.Getenv("INGRESSD_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("ingressd starting",
		"bind_address", cfg.BindAddress,
		"port", cfg.Port,
		"protocol_version", cfg.ProtocolVersion,
		"max_players", cfg.MaxPlayers,
	)

	ln, err := proxyfront.Listen(cfg.BindAddress, cfg.Port)
	if err != nil {
		return fmt.Errorf("creating listener: %w", err)
	}

	queue := ingress.NewReceiveQueue()
	front := proxyfront.New(queue)
	egress := compose.New(front)
	names := ignmap.New()

	skins := skin.NewResolver(skin.Config{
		UpstreamURL:    cfg.Skin.UpstreamURL,
		RequestTimeout: cfg.Skin.RequestTimeout,
		Workers:        cfg.Skin.Workers,
		ResultBuffer:   cfg.Skin.ResultBuffer,
	})
	defer skins.Stop()

	binder := identity.NewBinder(egress, names, skins, int32(cfg.CompressionThreshold))

	// driver is assigned below; status is only invoked from within the
	// tick goroutine once the driver is running, so the forward
	// reference is safe.
	var driver *simulation.Driver
	status := func() session.StatusInfo {
		return session.StatusInfo{
			VersionName:     cfg.VersionName,
			ProtocolVersion: cfg.ProtocolVersion,
			MaxPlayers:      cfg.MaxPlayers,
			OnlinePlayers:   driver.SessionCount(),
			MOTD:            cfg.Motd,
		}
	}

	machine := session.NewMachine(egress, binder, status, gameplay.NewDefaultHandler())
	pipeline := removal.New(egress, names)

	driver = simulation.NewDriver(simulation.Config{
		Queue:         queue,
		Names:         names,
		Egress:        egress,
		Machine:       machine,
		Removal:       pipeline,
		Skins:         skins,
		MaxPacketSize: cfg.MaxPacketSize,
		TickInterval:  cfg.TickInterval,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting simulation tick driver", "interval", cfg.TickInterval)
		return driver.Run(gctx)
	})

	g.Go(func() error {
		slog.Info("starting proxy front", "address", ln.Addr())
		return front.Serve(gctx, ln)
	})

	return g.Wait()
}

// parseLogLevel converts string log level to slog.Level, defaulting to
// Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
