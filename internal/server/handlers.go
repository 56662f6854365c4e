package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"GoMatch/internal/config"
	"GoMatch/internal/coordinator"
	"GoMatch/internal/engine"
	"GoMatch/internal/patternset"
)

// Handler holds HTTP handlers for the GoMatch API.
type Handler struct {
	mgr    *Manager
	coord  *coordinator.Coordinator
	scan   config.ScanConfig
	logger *slog.Logger
}

// NewHandler creates a new Handler backed by the given Manager.
func NewHandler(mgr *Manager, scan config.ScanConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		mgr:    mgr,
		coord:  coordinator.New(mgr, scan, logger),
		scan:   scan,
		logger: logger,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Pattern set lifecycle.
	mux.HandleFunc("GET /patternsets", h.handleListPatternSets)
	mux.HandleFunc("POST /patternsets", h.handleCreatePatternSet)
	mux.HandleFunc("GET /patternsets/{name}", h.handleGetPatternSet)
	mux.HandleFunc("DELETE /patternsets/{name}", h.handleDeletePatternSet)

	// Queries.
	mux.HandleFunc("GET /patternsets/{name}/lookup", h.handleLookup)
	mux.HandleFunc("POST /patternsets/{name}/scan", h.handleScan)
	mux.HandleFunc("POST /scan", h.handleMultiScan)
}

// --- Pattern Set Lifecycle ---

func (h *Handler) handleListPatternSets(w http.ResponseWriter, r *http.Request) {
	names := h.mgr.List()

	infos := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		inst, err := h.mgr.Get(name)
		if err != nil {
			continue
		}
		infos = append(infos, inst.Info())
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"patternsets": infos,
	})
}

func (h *Handler) handleCreatePatternSet(w http.ResponseWriter, r *http.Request) {
	var def patternset.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	inst, err := h.mgr.Create(&def, SourceAPI)
	if err != nil {
		switch {
		case errors.Is(err, ErrPatternSetExists):
			writeError(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, ErrPersistFailed):
			h.logger.Error("failed to persist pattern set", "name", def.Name, "error", err)
			writeError(w, r, http.StatusInternalServerError, err.Error())
		default:
			writeError(w, r, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]interface{}{
		"status":        "created",
		"name":          inst.Name,
		"pattern_count": inst.Matcher.Len(),
	})
}

func (h *Handler) handleGetPatternSet(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupInstance(w, r)
	if !ok {
		return
	}

	info := inst.Info()
	info["patterns"] = inst.Matcher.Patterns()
	writeJSON(w, r, http.StatusOK, info)
}

func (h *Handler) handleDeletePatternSet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.mgr.Delete(name); err != nil {
		if errors.Is(err, ErrPatternSetNotFound) {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to delete pattern set", "name", name, "error", err)
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "deleted",
		"name":   name,
	})
}

// --- Queries ---

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupInstance(w, r)
	if !ok {
		return
	}

	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, r, http.StatusBadRequest, "text query parameter is required")
		return
	}

	writeJSON(w, r, http.StatusOK, inst.Matcher.Lookup(text))
}

// scanRequest is the body of a scan call.
type scanRequest struct {
	Text string `json:"text"`

	// PatternSets selects the sets of a multi-set scan; empty means all.
	PatternSets []string `json:"patternsets"`

	// MaxMatches lowers the configured limit for this request.
	MaxMatches int  `json:"max_matches"`
	Summary    bool `json:"summary"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupInstance(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeScanRequest(w, r)
	if !ok {
		return
	}

	maxMatches := h.scan.MaxMatches
	if req.MaxMatches > 0 && (maxMatches == 0 || req.MaxMatches < maxMatches) {
		maxMatches = req.MaxMatches
	}

	start := time.Now()
	ctx := engine.NewScanContext(h.scan.Timeout, maxMatches)
	if dl, ok := r.Context().Deadline(); ok && (ctx.Deadline.IsZero() || dl.Before(ctx.Deadline)) {
		ctx.Deadline = dl
	}
	hits, err := inst.Scan(ctx, req.Text)
	if err != nil && !ctx.Truncated() {
		writeError(w, r, http.StatusInternalServerError, "scan failed: "+err.Error())
		return
	}
	took := time.Since(start)

	if ctx.Truncated() {
		h.logger.Warn("scan truncated",
			"patternset", inst.Name,
			"timed_out", ctx.TimedOut,
			"limit_exceeded", ctx.LimitExceeded,
			"symbols_scanned", ctx.SymbolsScanned,
		)
	}

	if hits == nil {
		hits = []patternset.Hit{}
	}
	response := map[string]interface{}{
		"status":          "success",
		"took_ms":         took.Milliseconds(),
		"total_hits":      len(hits),
		"symbols_scanned": ctx.SymbolsScanned,
		"timed_out":       ctx.TimedOut,
		"truncated":       ctx.Truncated(),
		"hits":            hits,
	}
	if req.Summary {
		response["top_patterns"] = patternset.Summarize(hits, h.scan.TopK)
	}

	writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) handleMultiScan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeScanRequest(w, r)
	if !ok {
		return
	}

	names := req.PatternSets
	if len(names) == 0 {
		names = h.mgr.List()
	}

	result, err := h.coord.Scan(r.Context(), coordinator.Request{
		PatternSets: names,
		Text:        req.Text,
		MaxMatches:  req.MaxMatches,
		Summary:     req.Summary,
	})
	switch {
	case errors.Is(err, coordinator.ErrNoPatternSets):
		writeError(w, r, http.StatusBadRequest, "no pattern sets to scan")
	case errors.Is(err, coordinator.ErrAllPatternSetsFailed):
		writeJSON(w, r, http.StatusNotFound, result)
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "scan failed: "+err.Error())
	default:
		writeJSON(w, r, http.StatusOK, result)
	}
}

// --- Helpers ---

// decodeScanRequest reads a scan body, enforcing the input size limit.
func (h *Handler) decodeScanRequest(w http.ResponseWriter, r *http.Request) (*scanRequest, bool) {
	// A control byte escapes to \u00XX, six times its raw size.
	r.Body = http.MaxBytesReader(w, r.Body, 6*h.scan.MaxInputBytes+4096)

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}
	if int64(len(req.Text)) > h.scan.MaxInputBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, "text exceeds max_input_bytes")
		return nil, false
	}
	return &req, true
}

// lookupInstance resolves the {name} path value, writing the error response
// itself when the pattern set does not exist.
func (h *Handler) lookupInstance(w http.ResponseWriter, r *http.Request) (*PatternSetInstance, bool) {
	inst, err := h.mgr.Get(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, ErrPatternSetNotFound) {
			writeError(w, r, http.StatusNotFound, err.Error())
			return nil, false
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return inst, true
}
