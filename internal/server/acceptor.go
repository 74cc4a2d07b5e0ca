package server

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/robhughadams/mailrecv/internal/logging"
)

// Acceptor exit codes, also used as the process exit status.
const (
	ExitOK         = 0
	ExitBindFail   = 1
	ExitAcceptFail = 2
)

// SessionHandler is called on its own goroutine for each accepted
// connection. It owns the connection and must close it.
type SessionHandler func(ctx context.Context, conn net.Conn)

// Acceptor owns the single TCP listening socket. Each accepted connection is
// handed to the SessionHandler on a fresh goroutine; the acceptor never
// waits for sessions to finish (best-effort drain on shutdown).
type Acceptor struct {
	address string
	handler SessionHandler
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

// NewAcceptor creates an Acceptor bound to address once Start is called.
func NewAcceptor(address string, handler SessionHandler, logger *slog.Logger) *Acceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acceptor{
		address: address,
		handler: handler,
		logger:  logging.WithListener(logger, address),
	}
}

// Start binds the listening socket and blocks in the accept loop until Stop
// is called, the context is canceled, or the listener fails. The return
// value is the process exit code: 0 on clean shutdown, 1 on bind failure,
// 2 on accept failure.
func (a *Acceptor) Start(ctx context.Context) int {
	ln, err := net.Listen("tcp", a.address)
	if err != nil {
		a.logger.Error("bind failed", slog.String("error", err.Error()))
		return ExitBindFail
	}

	a.mu.Lock()
	if a.stopped {
		// Stop raced ahead of the bind.
		a.mu.Unlock()
		_ = ln.Close()
		return ExitOK
	}
	a.listener = ln
	a.mu.Unlock()

	a.logger.Info("listener started")

	go func() {
		<-ctx.Done()
		a.Stop()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if a.isStopped() {
				a.logger.Info("listener stopped")
				return ExitOK
			}
			a.logger.Error("accept failed", slog.String("error", err.Error()))
			return ExitAcceptFail
		}

		go a.handler(ctx, conn)
	}
}

// Stop closes the listening socket, unblocking Accept. Asynchronous and
// idempotent; running sessions are left to finish on their own.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.stopped = true

	if a.listener != nil {
		_ = a.listener.Close()
	}
}

// Addr returns the bound listener address, or nil before Start.
func (a *Acceptor) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

func (a *Acceptor) isStopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}
