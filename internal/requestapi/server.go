// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

// Package requestapi implements the Request API: the client-facing HTTP
// surface that authenticates an API key, validates and enqueues build
// requests, and reports catalog coverage and request status.
package requestapi

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/thewaterinstitute/metget-server/internal/config"
	"github.com/thewaterinstitute/metget-server/internal/logging"
	"github.com/thewaterinstitute/metget-server/internal/middleware"
	"github.com/thewaterinstitute/metget-server/internal/requests"
	"github.com/thewaterinstitute/metget-server/internal/selection"
	"github.com/thewaterinstitute/metget-server/internal/serverenv"
	"github.com/thewaterinstitute/metget-server/pkg/server"
)

// Server holds the dependencies the Request API's handlers need.
type Server struct {
	env      *serverenv.ServerEnv
	cfg      *config.Config
	requests requests.Store
	engine   *selection.Engine
	validate *validator.Validate
	limiters *keyLimiters
}

// NewServer builds a Server. reqStore is passed separately from env;
// cmd/api passes env.Requests().
func NewServer(cfg *config.Config, env *serverenv.ServerEnv, reqStore requests.Store) (*Server, error) {
	if env.Catalog() == nil {
		return nil, fmt.Errorf("requestapi: server environment is missing a catalog")
	}
	if env.Ledger() == nil {
		return nil, fmt.Errorf("requestapi: server environment is missing a credit ledger")
	}
	if env.Bus() == nil {
		return nil, fmt.Errorf("requestapi: server environment is missing a message bus")
	}

	limiters, err := newKeyLimiters(cfg.RateLimitPerMinute)
	if err != nil {
		return nil, fmt.Errorf("requestapi: building rate limiters: %w", err)
	}

	return &Server{
		env:      env,
		cfg:      cfg,
		requests: reqStore,
		engine:   selection.New(env.Catalog()),
		validate: validator.New(),
		limiters: limiters,
	}, nil
}

// Routes assembles the mux.Router the process listens with.
func (s *Server) Routes(ctx context.Context) *mux.Router {
	logger := logging.FromContext(ctx).Named("requestapi")

	r := mux.NewRouter()
	r.Use(middleware.Recovery())
	r.Use(middleware.PopulateRequestID())
	r.Use(middleware.PopulateLogger(logger))
	r.Use(middleware.ProcessMaintenance(s.cfg))

	r.Handle("/health", server.HandleHealthz(s.env))

	r.Handle("/status", s.authenticated(s.handleStatus())).Methods("GET")
	r.Handle("/check", s.authenticated(s.handleCheck())).Methods("GET")
	r.Handle("/build", s.authenticated(s.rateLimited(s.handleBuild()))).Methods("POST")

	return r
}
