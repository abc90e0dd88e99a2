package handlers

import (
	"net/http"

	"github.com/protwis/signprot/internal/application/interaction"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
)

type InteractionHandler struct {
	svc    interaction.Service
	logger logging.Logger
}

func NewInteractionHandler(svc interaction.Service, logger logging.Logger) *InteractionHandler {
	return &InteractionHandler{svc: svc, logger: logger.Named("interaction_handler")}
}

type InteractionsRequest struct {
	PDBCodes []string `json:"pdb_codes"`
	Effector string   `json:"effector"`
}

// Interactions handles POST /api/v1/interactions.
func (h *InteractionHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	var req InteractionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	res, err := h.svc.Interactions(r.Context(), &interaction.InteractionsInput{PDBCodes: req.PDBCodes, Effector: req.Effector})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Matrix handles GET /api/v1/interactions/matrix?database=gprotein|arrestin.
func (h *InteractionHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Matrix(r.Context(), r.URL.Query().Get("database"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
