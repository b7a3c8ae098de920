// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0

// Package server wires configuration, logging, the hub client, the
// conversion API and the HTTP handler into a runnable service.
package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	robosim "github.com/hshadab/robotics-simulation"
	"github.com/hshadab/robotics-simulation/errors"
	"github.com/hshadab/robotics-simulation/hub"
	"github.com/hshadab/robotics-simulation/logger"
)

// closeTimeout bounds graceful shutdown.
const closeTimeout = time.Second * 30

// Server is a running robosim service instance.
type Server struct {
	cfg    *Config
	logger logger.Logger

	ln     net.Listener
	server *http.Server
}

// serverOption is a functional option type for Server.
type serverOption func(s *Server) error

func OptServerLogger(l logger.Logger) serverOption {
	return func(s *Server) error {
		s.logger = l
		return nil
	}
}

// NewServer builds a server from the given config. Every conversion
// request gets its own registry, table and scratch directory; the only
// shared state here is immutable wiring.
func NewServer(cfg *Config, opts ...serverOption) (*Server, error) {
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	if s.logger == nil {
		if cfg.Verbose {
			s.logger = logger.NewVerboseLogger(os.Stderr)
		} else {
			s.logger = logger.NewStandardLogger(os.Stderr)
		}
	}

	hubClient := hub.NewClient(cfg.Hub.Endpoint, hub.OptClientRetryMax(cfg.Hub.RetryMax))
	api, err := robosim.NewAPI(hubClient, robosim.OptAPILogger(s.logger))
	if err != nil {
		return nil, errors.Wrap(err, "creating api")
	}

	handler, err := robosim.NewHandler(
		robosim.OptHandlerAPI(api),
		robosim.OptHandlerLogger(s.logger),
		robosim.OptHandlerAllowedOrigins(cfg.Handler.AllowedOrigins),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating handler")
	}

	s.server = &http.Server{Handler: handler}
	return s, nil
}

// Open starts listening and serving in the background.
func (s *Server) Open() error {
	ln, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.cfg.Bind)
	}
	s.ln = ln
	s.logger.Printf("listening as http://%s", ln.Addr())

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("http server error: %s", err)
		}
	}()
	return nil
}

// Addr returns the bound address, once Open has succeeded.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close gracefully shuts the server down.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
