package server

import (
	"net/http"

	"github.com/jonathan/ui-builder/internal/testgen"
	"github.com/jonathan/ui-builder/internal/types"
	"github.com/jonathan/ui-builder/internal/validation"
)

// ValidateResponse is the body of POST /validate.
type ValidateResponse struct {
	Report      *types.ValidationReport `json:"report"`
	Suggestions []string                `json:"suggestions"`
}

// FixResponse is the body of POST /validate/fix.
type FixResponse struct {
	*validation.FixResult
	Report *types.ValidationReport `json:"report"`
}

// handleValidate scores source without running a job.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	report, err := validation.Validate(req.Source, req.ComponentType)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	suggestions := validation.Suggestions(report, req.Source)
	if suggestions == nil {
		suggestions = []string{}
	}
	s.jsonResponse(w, http.StatusOK, ValidateResponse{Report: report, Suggestions: suggestions})
}

// handleApplyFixes applies mechanical fixes and re-scores the result.
func (s *Server) handleApplyFixes(w http.ResponseWriter, r *http.Request) {
	var req types.ApplyFixesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	result, err := validation.ApplyFixes(req.Source, req.ComponentType, req.Rules)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	report, err := validation.Validate(result.Source, req.ComponentType)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, FixResponse{FixResult: result, Report: report})
}

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"rules":   validation.Rules(),
		"fixable": validation.FixableRules(),
	})
}

// handleGenerateTests builds a test suite for caller-supplied source.
func (s *Server) handleGenerateTests(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateTestsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	opts := testgen.Options{ComponentName: req.ComponentName, TestTypes: req.TestTypes}
	if req.CoverageTarget != nil {
		opts.CoverageTarget = *req.CoverageTarget
	}
	suite, err := testgen.Generate(req.Source, opts)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, suite)
}

func (s *Server) handleListTargets(w http.ResponseWriter, _ *http.Request) {
	targets := []string{}
	if s.targets != nil {
		targets = append(targets, s.targets.Targets()...)
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"targets": targets})
}
