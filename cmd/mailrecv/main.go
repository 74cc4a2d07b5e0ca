package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robhughadams/mailrecv/internal/config"
	"github.com/robhughadams/mailrecv/internal/dnsxl"
	"github.com/robhughadams/mailrecv/internal/logging"
	"github.com/robhughadams/mailrecv/internal/metrics"
	"github.com/robhughadams/mailrecv/internal/server"
	"github.com/robhughadams/mailrecv/internal/smtp"
	"github.com/robhughadams/mailrecv/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run selects the operating mode. A first argument beginning with /d
// (daemon/debug) runs the receiver in-process and returns its exit code;
// anything else hands control to the platform service manager.
func run(args []string) int {
	if len(args) > 0 && strings.HasPrefix(args[0], "/d") {
		return runDaemon(args[1:])
	}
	return runService(args)
}

// runDaemon starts the acceptor in-process and blocks until a signal or a
// listener failure. Exit codes: 0 clean shutdown, 1 bind failure, 2 accept
// failure.
func runDaemon(args []string) int {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return server.ExitBindFail
	}

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		return server.ExitBindFail
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return server.ExitBindFail
	}

	logger := logging.NewLogger(cfg.LogLevel)

	rcv, err := buildReceiver(&cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error starting receiver: %v\n", err)
		return server.ExitBindFail
	}
	defer rcv.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		rcv.acceptor.Stop()
	}()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewPrometheusServer(cfg.Metrics.Address, cfg.Metrics.Path)
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	logger.Info("starting mailrecv",
		"hostname", cfg.HostName,
		"listen", cfg.ListenAddr(),
		"store_data", cfg.StoreData)

	return rcv.acceptor.Start(ctx)
}

// receiver bundles the acceptor with the collaborators that need closing.
type receiver struct {
	acceptor   *server.Acceptor
	sessionLog *store.SessionLog
}

func (r *receiver) close() {
	if r.sessionLog != nil {
		_ = r.sessionLog.Close()
	}
}

// buildReceiver wires the session collaborators from the config snapshot.
func buildReceiver(cfg *config.Config, logger *slog.Logger) (*receiver, error) {
	var collector metrics.Collector = &metrics.NoopCollector{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
	}

	var st store.Store
	if cfg.StoreData {
		fs, err := store.NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		st = fs
		logger.Info("message storage enabled", "path", cfg.StorePath)
	}

	sessionLog, err := store.OpenSessionLog(cfg.LogPath)
	if err != nil {
		return nil, err
	}

	var prober dnsxl.Prober
	if len(cfg.Whitelists)+len(cfg.Blacklists) > 0 {
		resolver, err := dnsxl.New(cfg.Whitelists, cfg.Blacklists, logger)
		if err != nil {
			_ = sessionLog.Close()
			return nil, err
		}
		prober = resolver
		logger.Info("dns list checks enabled",
			"whitelists", len(cfg.Whitelists),
			"blacklists", len(cfg.Blacklists))
	}

	handler := smtp.Handler(cfg, smtp.Deps{
		Counters:   &server.Counters{},
		Prober:     prober,
		Store:      st,
		SessionLog: sessionLog,
		Collector:  collector,
		Logger:     logger,
	})

	return &receiver{
		acceptor:   server.NewAcceptor(cfg.ListenAddr(), handler, logger),
		sessionLog: sessionLog,
	}, nil
}
