package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shelfsnap/shelfsnap-go/pkg/kvstore"
	"github.com/shelfsnap/shelfsnap-go/pkg/models"
	"github.com/shelfsnap/shelfsnap-go/pkg/pairing"
	"github.com/shelfsnap/shelfsnap-go/pkg/scheduler"
)

// ScanRequest is the body of a pairing scan call
type ScanRequest struct {
	BatchID  string                         `json:"batch_id"`
	Insights map[string]models.ImageInsight `json:"insights"`
}

// ReassignRequest is the body of a standalone orphan reassignment call
type ReassignRequest struct {
	Orphans   []string                       `json:"orphans"`
	Groups    []models.Group                 `json:"groups"`
	Insights  map[string]models.ImageInsight `json:"insights"`
	Threshold float64                        `json:"threshold,omitempty"`
}

// ReconcileRequest is the body of a role reconciliation call
type ReconcileRequest struct {
	Groups   []models.Group                 `json:"groups"`
	Insights map[string]models.ImageInsight `json:"insights"`
}

// handleHealth reports service liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "shelfsnap-pairing",
	})
}

// handleScan runs a full pairing scan over a batch of image insights
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestResponse(w, "invalid request body: "+err.Error())
		return
	}
	if len(req.Insights) == 0 {
		writeBadRequestResponse(w, "insights map is required")
		return
	}
	if req.BatchID == "" {
		req.BatchID = uuid.New().String()
	}

	result, err := s.engine.Scan(r.Context(), req.BatchID, req.Insights)
	if err != nil {
		writeInternalServerErrorResponse(w, err.Error())
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// handleGetScanResult returns the cached result of a previous scan
func (s *Server) handleGetScanResult(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]

	raw, err := s.store.Get(r.Context(), "pairing:scan:"+batchID)
	if errors.Is(err, kvstore.ErrNotFound) {
		writeErrorResponse(w, http.StatusNotFound, "no result for batch "+batchID)
		return
	}
	if err != nil {
		writeInternalServerErrorResponse(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(raw))
}

// handleReassignOrphans runs the standalone orphan reassignment entry point,
// used for retroactive repair of existing data
func (s *Server) handleReassignOrphans(w http.ResponseWriter, r *http.Request) {
	var req ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestResponse(w, "invalid request body: "+err.Error())
		return
	}
	if len(req.Orphans) == 0 {
		writeBadRequestResponse(w, "orphans list is required")
		return
	}

	matches := pairing.ReassignOrphans(req.Orphans, req.Groups, req.Insights, req.Threshold)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"matches": matches,
	})
}

// handleReconcileRoles returns proposed role corrections for finalized groups
func (s *Server) handleReconcileRoles(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestResponse(w, "invalid request body: "+err.Error())
		return
	}
	if len(req.Groups) == 0 {
		writeBadRequestResponse(w, "groups list is required")
		return
	}

	corrections := pairing.ReconcileRoles(req.Groups, req.Insights)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"corrections": corrections,
	})
}

// handleEnqueueRepair queues an orphan repair request for the scheduled sweep
func (s *Server) handleEnqueueRepair(w http.ResponseWriter, r *http.Request) {
	var req scheduler.RepairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestResponse(w, "invalid request body: "+err.Error())
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	if err := s.repair.EnqueueRepair(r.Context(), req); err != nil {
		writeInternalServerErrorResponse(w, err.Error())
		return
	}

	writeJSONResponse(w, http.StatusAccepted, map[string]any{
		"request_id": req.ID,
		"status":     "queued",
	})
}
