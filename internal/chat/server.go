// Package chat implements the chat server core: the connection acceptor,
// the bounded session registry with room membership, the per-session
// command dispatcher, and wiring to the file-transfer pipeline.
package chat

import (
	"bufio"
	"errors"
	"log/slog"
	"net"

	"github.com/Ramazanov01/chatserver/internal/config"
	"github.com/Ramazanov01/chatserver/internal/eventlog"
	"github.com/Ramazanov01/chatserver/internal/transfer"
)

type Server struct {
	addr     string
	cfg      *config.Config
	logger   *slog.Logger
	events   *eventlog.Log
	reg      *Registry
	queue    *transfer.Queue
	pipeline *transfer.Pipeline
	listener net.Listener
}

func NewServer(addr string, cfg *config.Config, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.Load()
	}
	if cfg.MessageRate <= 0 {
		cfg.MessageRate = 10
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	events := eventlog.New(cfg.LogFile, logger)
	reg := NewRegistry(cfg.MaxClients, events, logger)
	queue := transfer.NewQueue(cfg.QueueSize)
	pipeline := transfer.NewPipeline(transfer.Config{
		Workers:   cfg.ConcurrentUploads,
		Slots:     cfg.ConcurrentUploads,
		Delay:     cfg.ProcessDelay,
		OutputDir: cfg.OutputDir,
	}, queue, reg, events, logger)

	return &Server{
		addr:     addr,
		cfg:      cfg,
		logger:   logger,
		events:   events,
		reg:      reg,
		queue:    queue,
		pipeline: pipeline,
	}
}

// Start binds the listener and launches the accept loop and the pipeline
// workers. Bind failures are the only startup errors.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.pipeline.Start()
	go s.acceptLoop(ln)

	s.events.Append("[START] Server started.")
	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, useful when started on port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop force-closes every live session and shuts the acceptor and workers
// down. The upload queue is not drained; queued transfers are abandoned.
func (s *Server) Stop() {
	s.events.Append("[SHUTDOWN] Shutdown signal received. Disconnecting all clients.")

	s.reg.CloseAll("Server shutting down.")
	if s.listener != nil {
		s.listener.Close()
	}
	s.pipeline.Stop()

	s.logger.Info("shutdown complete")
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		go s.handshake(&connReader{c: conn, r: bufio.NewReader(conn)})
	}
}

// connReader pairs a connection with the buffered reader created for the
// handshake; the session loop must keep using the same reader so no bytes
// buffered during the handshake are lost.
type connReader struct {
	c net.Conn
	r *bufio.Reader
}

// writeLine is for pre-session replies only; handshaked sessions go
// through their Out channel.
func writeLine(conn net.Conn, line string) {
	conn.Write([]byte(line + "\n"))
}
