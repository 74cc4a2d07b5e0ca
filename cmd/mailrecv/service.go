package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kardianos/service"
	"github.com/robhughadams/mailrecv/internal/config"
	"github.com/robhughadams/mailrecv/internal/logging"
)

// controlVerbs are forwarded to the service manager instead of running the
// receiver.
var controlVerbs = map[string]bool{
	"install":   true,
	"uninstall": true,
	"start":     true,
	"stop":      true,
	"restart":   true,
}

// runService runs the receiver under the platform service manager, or
// forwards a control verb (install, uninstall, start, stop, restart) to it.
func runService(args []string) int {
	prg := &program{}

	svc, err := service.New(prg, &service.Config{
		Name:        "mailrecv",
		DisplayName: "MailRecv",
		Description: "Fake SMTP receiver for MX-sandwich and mail testing use.",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating service: %v\n", err)
		return 1
	}

	if len(args) > 0 {
		verb := args[0]
		if !controlVerbs[verb] {
			fmt.Fprintf(os.Stderr, "unknown argument %q (expected /d or one of install, uninstall, start, stop, restart)\n", verb)
			return 1
		}
		if err := service.Control(svc, verb); err != nil {
			fmt.Fprintf(os.Stderr, "service %s failed: %v\n", verb, err)
			return 1
		}
		return 0
	}

	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "service error: %v\n", err)
		return 1
	}
	return 0
}

// program adapts the receiver to the service.Interface lifecycle.
type program struct {
	rcv    *receiver
	cancel context.CancelFunc
}

// Start builds the receiver from the default config path (plus environment
// overrides) and launches the accept loop on its own goroutine. The service
// manager owns the process lifetime.
func (p *program) Start(_ service.Service) error {
	cfg, err := config.Load("./mailrecv.toml")
	if err != nil {
		return err
	}
	cfg = config.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel)

	rcv, err := buildReceiver(&cfg, logger)
	if err != nil {
		return err
	}
	p.rcv = rcv

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	go func() {
		code := rcv.acceptor.Start(ctx)
		if code != 0 {
			logger.Error("receiver exited", "code", code)
		}
	}()
	return nil
}

// Stop closes the listener; running sessions drain on their own.
func (p *program) Stop(_ service.Service) error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.rcv != nil {
		p.rcv.acceptor.Stop()
		p.rcv.close()
	}
	return nil
}
