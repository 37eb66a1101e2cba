// Package server exposes pooled asset commands over TCP. A request is a
// two-character command code followed by its payload; the response is
// whatever the command's module returns, or "<code+1><error code>" on failure.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	anetserver "github.com/andrei-cloud/anet/server"
	"github.com/andrei-cloud/go_assetpool/internal/logging"
	"github.com/andrei-cloud/go_assetpool/internal/plugins"
	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/andrei-cloud/go_assetpool/pkg/guest"
	"github.com/rs/zerolog/log"
)

// logAdapter implements anet.Logger using zerolog.
type logAdapter struct{}

func (l logAdapter) Print(v ...any) {
	log.Info().Msg(fmt.Sprint(v...))
}

func (l logAdapter) Printf(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Infof(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Warnf(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func (l logAdapter) Errorf(format string, v ...any) {
	log.Error().Msgf(format, v...)
}

// Config tunes the TCP server.
type Config struct {
	MaxConns       int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		MaxConns:       100,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// executorHolder keeps atomic.Value storing one concrete type.
type executorHolder struct {
	plugins.Executor
}

// Server wraps the anet TCP server around an Executor.
type Server struct {
	address     string
	cfg         Config
	srv         *anetserver.Server
	executor    atomic.Value // stores executorHolder
	activeConns int32
}

// NewServer configures a server for address backed by exec.
func NewServer(address string, exec plugins.Executor, cfg Config) (*Server, error) {
	if exec == nil {
		return nil, errors.New("server setup failed: nil executor")
	}

	s := &Server{address: address, cfg: cfg}
	s.executor.Store(executorHolder{exec})

	srv, err := anetserver.NewServer(address, anetserver.HandlerFunc(s.handle), &anetserver.ServerConfig{
		MaxConns:        cfg.MaxConns,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     0, // disable idle connection closure.
		ShutdownTimeout: 5 * time.Second,
		Logger:          logAdapter{},
	})
	if err != nil {
		return nil, fmt.Errorf("server setup failed: %w", err)
	}
	s.srv = srv

	return s, nil
}

// Start begins listening for connections.
func (s *Server) Start() error {
	log.Info().Str("address", s.address).Msg("server started")

	return s.srv.Start()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	return s.srv.Stop()
}

// SetExecutor swaps the executor used by new requests and returns the old one.
func (s *Server) SetExecutor(exec plugins.Executor) plugins.Executor {
	old, _ := s.executor.Swap(executorHolder{exec}).(executorHolder)

	return old.Executor
}

// ActiveConnections returns the number of requests being handled.
func (s *Server) ActiveConnections() int {
	return int(atomic.LoadInt32(&s.activeConns))
}

func (s *Server) handle(conn *anetserver.ServerConn, data []byte) ([]byte, error) {
	client := conn.Conn.RemoteAddr().String()
	active := atomic.AddInt32(&s.activeConns, 1)
	defer atomic.AddInt32(&s.activeConns, -1)

	start := time.Now()
	cmd, resp, code := s.process(client, int(active), data)
	logging.LogResponse(client, cmd, resp, code.CodeOnly(), time.Since(start))

	return resp, nil
}

// process runs one request and returns the response with its error code.
func (s *Server) process(client string, active int, data []byte) (string, []byte, errorcodes.PoolError) {
	if len(data) < 2 {
		log.Warn().Str("event", "malformed_request").Str("client_ip", client).Int("length", len(data)).Msg("request too short")

		return string(data), guest.ErrorResponse(string(data), errorcodes.ErrMalformedRequest), errorcodes.ErrMalformedRequest
	}

	cmd := string(data[:2])
	logging.LogRequest(client, cmd, data, active)

	holder, _ := s.executor.Load().(executorHolder)

	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().RequestTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := holder.ExecuteCommand(ctx, cmd, data[2:])
	if err != nil {
		code := errorcodes.From(err)
		log.Error().
			Str("event", "command_failed").
			Str("client_ip", client).
			Str("command", cmd).
			Str("error_code", code.CodeOnly()).
			Err(err).
			Msg("command execution failed")

		return cmd, guest.ErrorResponse(cmd, code), code
	}

	return cmd, resp, errorcodes.Err00
}
