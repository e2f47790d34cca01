package main

import "net/http"

// setupRoutes registers the API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.errorRecoveryMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/pairing/scan", s.handleScan).Methods(http.MethodPost)
	api.HandleFunc("/pairing/scan/{batchID}", s.handleGetScanResult).Methods(http.MethodGet)
	api.HandleFunc("/pairing/orphans/reassign", s.handleReassignOrphans).Methods(http.MethodPost)
	api.HandleFunc("/pairing/roles/reconcile", s.handleReconcileRoles).Methods(http.MethodPost)
	api.HandleFunc("/pairing/repair", s.handleEnqueueRepair).Methods(http.MethodPost)
}
