package server

import (
	"net/http"
	"strings"

	"github.com/jonathan/ui-builder/internal/history"
	"github.com/jonathan/ui-builder/internal/pipeline"
	"github.com/jonathan/ui-builder/internal/types"
)

const defaultStatsDays = 30

// handleListHistory lists history entries. With similar_to it ranks by
// keyword overlap with that prompt and ignores the other filters.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	entries, err := s.orch.ListHistory(r.Context(), pipeline.HistoryQuery{
		Filter: types.HistoryFilter{
			Search:   strings.TrimSpace(q.Get("search")),
			Category: strings.TrimSpace(q.Get("category")),
			Status:   strings.TrimSpace(q.Get("status")),
			Limit:    limit,
			Offset:   offset,
		},
		SimilarTo: q.Get("similar_to"),
	})
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// handleSuggestions returns past prompts similar to a draft.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 5)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	entries, err := s.orch.Suggestions(r.Context(), r.URL.Query().Get("prompt"), limit)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"suggestions": entries})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	e, err := s.orch.History().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, e)
}

// handleDeleteHistory soft-deletes an entry.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.History().SoftDelete(r.Context(), r.PathValue("id")); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultStatsDays)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	stats, err := s.orch.History().Stats(r.Context(), days)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"templates": history.Templates(r.URL.Query().Get("category")),
	})
}

// handleApplyTemplate fills a template and returns the resulting prompt.
func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req types.ApplyTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	prompt, err := history.ApplyTemplate(r.PathValue("id"), req.Values)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"prompt": prompt})
}
