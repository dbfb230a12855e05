package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/findings"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/policy"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/render"
	slmiddleware "github.com/pankaj-dahiya-devops/shiftleft/internal/server/middleware"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/version"
)

// AnalysisListItem is the list view of a stored analysis.
type AnalysisListItem struct {
	ID        string                `json:"id"`
	Status    models.AnalysisStatus `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
	TenantID  string                `json:"tenant_id,omitempty"`
	Source    *models.SourceControl `json:"source,omitempty"`
	Summary   models.Summary        `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	analyses AnalysisService
	catalogs []render.Catalog
}

func newHandler(deps Dependencies) *Handler {
	return &Handler{analyses: deps.Analyses, catalogs: deps.Catalogs}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (h *Handler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req analysis.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	if tenant := r.Header.Get(slmiddleware.TenantHeader); tenant != "" {
		req.TenantID = tenant
	}

	result, err := h.analyses.PerformAnalysis(ctx, req)
	if err != nil {
		if isInputError(err) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error().Err(err).Msg("analysis failed")
		writeError(w, r, http.StatusInternalServerError, "analysis failed")
		return
	}

	writeJSON(w, r, http.StatusCreated, result)
}

func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	q := r.URL.Query()

	filter := analysis.ListFilter{
		TenantID:   q.Get("tenant_id"),
		Status:     models.AnalysisStatus(q.Get("status")),
		Repository: q.Get("repository"),
	}
	if tenant := r.Header.Get(slmiddleware.TenantHeader); tenant != "" {
		filter.TenantID = tenant
	}
	switch filter.Status {
	case "", models.StatusInProgress, models.StatusCompleted, models.StatusFailed:
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown status %q", filter.Status))
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}

	results, err := h.analyses.ListAnalyses(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list analyses")
		writeError(w, r, http.StatusInternalServerError, "list analyses failed")
		return
	}

	items := make([]AnalysisListItem, 0, len(results))
	for _, res := range results {
		items = append(items, AnalysisListItem{
			ID:        res.ID,
			Status:    res.Status,
			Timestamp: res.Metadata.Timestamp,
			TenantID:  res.Metadata.TenantID,
			Source:    res.Metadata.Source,
			Summary:   res.Summary,
		})
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	result, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (h *Handler) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	result, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.analyses.DeleteAnalysis(ctx, result.ID); err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "analysis not found")
			return
		}
		logger.Error().Err(err).Str("analysis_id", result.ID).Msg("failed to delete analysis")
		writeError(w, r, http.StatusInternalServerError, "delete analysis failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ExportAnalysis(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	q := r.URL.Query()

	format := findings.Format(strings.ToLower(q.Get("format")))
	if format == "" {
		format = findings.FormatJSON
	}
	var minSev models.Severity
	if raw := q.Get("min_severity"); raw != "" {
		sev, ok := policy.ParseSeverity(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown severity %q", raw))
			return
		}
		minSev = sev
	}

	result, ok := h.lookup(w, r)
	if !ok {
		return
	}

	body, err := findings.Export(findings.AtOrAbove(result.Findings, minSev), format)
	if err != nil {
		if errors.Is(err, findings.ErrUnsupportedFormat) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error().Err(err).Str("analysis_id", result.ID).Msg("failed to export findings")
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}

	contentType, ext := exportContentType(format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "analysis-"+result.ID+ext))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		logger.Error().Err(err).Msg("failed to write export")
	}
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(r.URL.Query().Get("domain"))
	writeJSON(w, r, http.StatusOK, render.DescribeAll(h.catalogs, domain))
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info := render.FindRule(h.catalogs, id)
	if info == nil {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("rule %q not found", id))
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

// lookup fetches the {id} analysis and writes a 404 when it is missing or
// belongs to a different tenant than the X-Tenant-ID caller.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.AnalysisResult, bool) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	id := chi.URLParam(r, "id")

	result, err := h.analyses.GetAnalysis(ctx, id)
	if err != nil && !errors.Is(err, analysis.ErrNotFound) {
		logger.Error().Err(err).Str("analysis_id", id).Msg("failed to fetch analysis")
		writeError(w, r, http.StatusInternalServerError, "fetch analysis failed")
		return nil, false
	}
	tenant := r.Header.Get(slmiddleware.TenantHeader)
	if result == nil || (tenant != "" && result.Metadata.TenantID != tenant) {
		writeError(w, r, http.StatusNotFound, "analysis not found")
		return nil, false
	}
	return result, true
}

func isInputError(err error) bool {
	var pe *models.ParseError
	var ve *models.ValidationError
	return errors.As(err, &pe) || errors.As(err, &ve)
}

func exportContentType(f findings.Format) (contentType, ext string) {
	switch f {
	case findings.FormatCSV:
		return "text/csv; charset=utf-8", ".csv"
	case findings.FormatMarkdown:
		return "text/markdown; charset=utf-8", ".md"
	default:
		return "application/json", ".json"
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}
