package handlers

import (
	"net/http"

	"github.com/protwis/signprot/internal/application/signature"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/internal/interfaces/http/middleware"
)

// SignatureHandler serves signature computation and matching. Both share the
// caller's session: a match scores against the last computed signature.
type SignatureHandler struct {
	svc    signature.Service
	logger logging.Logger
}

func NewSignatureHandler(svc signature.Service, logger logging.Logger) *SignatureHandler {
	return &SignatureHandler{svc: svc, logger: logger.Named("signature_handler")}
}

// ComputeRequest selects the receptor sets of a signature.
type ComputeRequest struct {
	EntryNames          []string            `json:"entry_names"`
	ReferenceEntryNames []string            `json:"reference_entry_names,omitempty"`
	Segments            []string            `json:"segments,omitempty"`
	AllPositions        bool                `json:"all_positions,omitempty"`
	Ignore              map[string][]string `json:"ignore,omitempty"`
}

type MatchRequest struct {
	EntryNames        []string `json:"entry_names"`
	Cutoff            *float64 `json:"cutoff,omitempty"`
	Mode              string   `json:"mode,omitempty"`
	Family            string   `json:"family,omitempty"`
	FilteringParticle string   `json:"filtering_particle,omitempty"`
}

// Compute handles POST /api/v1/signature.
func (h *SignatureHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	res, err := h.svc.Compute(r.Context(), middleware.ContextGetSessionID(r.Context()), &signature.ComputeInput{
		EntryNames:          req.EntryNames,
		ReferenceEntryNames: req.ReferenceEntryNames,
		Segments:            req.Segments,
		AllPositions:        req.AllPositions,
		Ignore:              req.Ignore,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Match handles POST /api/v1/signature/match.
func (h *SignatureHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	res, err := h.svc.Match(r.Context(), middleware.ContextGetSessionID(r.Context()), &signature.MatchInput{
		EntryNames:        req.EntryNames,
		Cutoff:            req.Cutoff,
		Mode:              req.Mode,
		Family:            req.Family,
		FilteringParticle: req.FilteringParticle,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// LastMatch handles GET /api/v1/signature/match: the parameters of the
// session's previous match, 204 when there is none.
func (h *SignatureHandler) LastMatch(w http.ResponseWriter, r *http.Request) {
	params, err := h.svc.LastMatch(r.Context(), middleware.ContextGetSessionID(r.Context()))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if params == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, params)
}
