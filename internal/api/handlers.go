package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/types"
)

const defaultListLimit = 50

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := decodeJSON[generateRequest](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req, n := body.toAssembler()
	artifacts, err := s.svc.Generate(r.Context(), req, n)
	if err != nil && len(artifacts) == 0 {
		s.writeError(w, r, err)
		return
	}

	resp := generateResponse{Artifacts: artifacts}
	if err != nil {
		s.logger.Warn("partial generation", zap.Int("built", len(artifacts)), zap.Error(err))
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, apperr.New(apperr.KindValidation, "list", "limit must be a positive integer"))
			return
		}
		limit = n
	}

	artifacts, err := s.svc.Artifacts(limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if artifacts == nil {
		artifacts = []types.Artifact{}
	}
	writeJSON(w, http.StatusOK, listResponse{Artifacts: artifacts})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	art, err := s.svc.Artifact(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteArtifact(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateMetrics(w http.ResponseWriter, r *http.Request) {
	body, err := decodeJSON[metricsRequest](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.svc.UpdateMetrics(chi.URLParam(r, "id"), body.Metrics)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleCard serves the rendered card page used for capture
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Page([]string{chi.URLParam(r, "id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page.HTML))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.svc.ExportArtifact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeFile(w, "image/png", img.FileName, img.Data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body, err := decodeJSON[exportRequest](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	archive, err := s.svc.ExportArtifacts(r.Context(), body.IDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(archive.Skipped) > 0 {
		ids := make([]string, len(archive.Skipped))
		for i, sk := range archive.Skipped {
			ids[i] = sk.DOMID
		}
		w.Header().Set(SkippedHeader, strings.Join(ids, ","))
	}
	writeFile(w, "application/zip", archive.FileName, archive.Data)
}
