package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shelfsnap/shelfsnap-go/pkg/config"
	"github.com/shelfsnap/shelfsnap-go/pkg/kvstore"
	"github.com/shelfsnap/shelfsnap-go/pkg/pairing"
	"github.com/shelfsnap/shelfsnap-go/pkg/scheduler"
	"github.com/shelfsnap/shelfsnap-go/utils"
)

// Server is the pairing service's HTTP front
type Server struct {
	router *mux.Router
	engine *pairing.Engine
	store  kvstore.Store
	repair *scheduler.RepairScheduler
	config *config.Config
	http   *http.Server
}

// NewServer wires the engine, store and repair scheduler into an HTTP server
func NewServer(cfg *config.Config, engine *pairing.Engine, store kvstore.Store) *Server {
	s := &Server{
		router: mux.NewRouter(),
		engine: engine,
		store:  store,
		repair: scheduler.NewRepairScheduler(store),
		config: cfg,
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
	}

	utils.GetLogger().Info("Starting pairing server",
		utils.String("port", port),
		utils.Component("server"))

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the repair scheduler and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	logger := utils.GetLogger()
	logger.Info("Initiating graceful shutdown", utils.Component("server"))

	if s.config.Repair.Enabled {
		s.repair.Stop()
	}

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
	}

	logger.Info("Graceful shutdown completed", utils.Component("server"))
	return nil
}
