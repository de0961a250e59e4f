package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pbaille/plan/internal/domain"
	"github.com/pbaille/plan/internal/hierarchy"
	"github.com/pbaille/plan/internal/logging"
	"github.com/pbaille/plan/internal/planner"
	"github.com/pbaille/plan/internal/store"
)

// TitleFetcher looks up a page title for plan items created from a link
type TitleFetcher interface {
	Title(url string) (string, error)
}

// Server handles HTTP requests for the plan API
type Server struct {
	store   *store.Store
	planner *planner.Planner
	titles  TitleFetcher
	logger  *logging.Logger
	addr    string
}

// New creates a new API server. titles may be nil to disable title lookups.
func New(s *store.Store, p *planner.Planner, titles TitleFetcher, logger *logging.Logger, addr string) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{store: s, planner: p, titles: titles, logger: logger.With("api"), addr: addr}
}

// Handler builds the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Experiences
	mux.HandleFunc("GET /experiences", s.listExperiences)
	mux.HandleFunc("POST /experiences", s.addExperience)
	mux.HandleFunc("GET /experiences/{id}", s.getExperience)
	mux.HandleFunc("DELETE /experiences/{id}", s.deleteExperience)

	// Plan items
	mux.HandleFunc("GET /experiences/{id}/plan-items", s.listPlanItems)
	mux.HandleFunc("POST /experiences/{id}/plan-items", s.addPlanItem)
	mux.HandleFunc("PATCH /experiences/{id}/plan-items", s.replacePlanItems)
	mux.HandleFunc("POST /experiences/{id}/plan-items/reorder", s.reorderPlanItems)
	mux.HandleFunc("DELETE /experiences/{id}/plan-items/{itemID}", s.deletePlanItem)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run starts the HTTP server and shuts it down when ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Infof("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddExperienceRequest is the request body for creating an experience
type AddExperienceRequest struct {
	Name        string `json:"name"`
	Destination string `json:"destination,omitempty"`
}

func (s *Server) addExperience(w http.ResponseWriter, r *http.Request) {
	var req AddExperienceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := s.store.AddExperience(req.Name, req.Destination)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, exp)
}

func (s *Server) listExperiences(w http.ResponseWriter, r *http.Request) {
	exps, err := s.store.ListExperiences()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if exps == nil {
		exps = []domain.Experience{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"experiences": exps,
	})
}

func (s *Server) getExperience(w http.ResponseWriter, r *http.Request) {
	exp, err := s.store.ResolveExperience(r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) deleteExperience(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteExperience(r.PathValue("id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listPlanItems(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	items, err := s.store.ListPlanItems(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var expanded []string
	if e := r.URL.Query().Get("expanded"); e != "" {
		expanded = strings.Split(e, ",")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"rows":  hierarchy.Flatten(items, hierarchy.ExpandedSet(expanded)),
	})
}

// AddPlanItemRequest is the request body for adding a plan item
type AddPlanItemRequest struct {
	Text         string  `json:"text"`
	Parent       *string `json:"parent,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
	PlanningDays int     `json:"planning_days,omitempty"`
	URL          string  `json:"url,omitempty"`
}

func (s *Server) addPlanItem(w http.ResponseWriter, r *http.Request) {
	var req AddPlanItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" && req.URL != "" && s.titles != nil {
		title, err := s.titles.Title(req.URL)
		if err != nil {
			s.logger.Warnf("title lookup for %s: %v", req.URL, err)
		}
		text = title
	}
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	item, err := s.store.AddPlanItem(r.PathValue("id"), domain.PlanItem{
		Text:         text,
		Parent:       req.Parent,
		Cost:         req.Cost,
		PlanningDays: req.PlanningDays,
		URL:          req.URL,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// ReplacePlanItemsRequest is the full new ordering of an experience's plan
type ReplacePlanItemsRequest struct {
	Items []domain.PlanItem `json:"items"`
}

func (s *Server) replacePlanItems(w http.ResponseWriter, r *http.Request) {
	var req ReplacePlanItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	if err := s.store.ReplacePlanItems(id, req.Items); err != nil {
		s.writeStoreError(w, err)
		return
	}

	items, err := s.store.ListPlanItems(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// ReorderResponse is the outcome of a drag reorder
type ReorderResponse struct {
	Items           []domain.PlanItem         `json:"items"`
	MovedID         string                    `json:"moved_id"`
	Intent          hierarchy.Intent          `json:"intent"`
	HierarchyChange hierarchy.HierarchyChange `json:"hierarchy_change"`
	Changed         bool                      `json:"changed"`
}

func (s *Server) reorderPlanItems(w http.ResponseWriter, r *http.Request) {
	var ev domain.DragEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ev.ActiveID == "" || ev.OverID == "" {
		writeError(w, http.StatusBadRequest, "active_id and over_id are required")
		return
	}

	res, err := s.planner.Drop(r.PathValue("id"), ev)
	switch {
	case errors.Is(err, hierarchy.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, hierarchy.ErrIntegrity):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReorderResponse{
		Items:           res.Items,
		MovedID:         res.MovedID,
		Intent:          res.Intent,
		HierarchyChange: res.Change(),
		Changed:         res.Changed,
	})
}

func (s *Server) deletePlanItem(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePlanItem(r.PathValue("id"), r.PathValue("itemID")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
