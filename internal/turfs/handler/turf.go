package handler

import (
	"net/http"
	"strconv"
	"turfbook/internal/turfs/service"
	"turfbook/pkg/auth"
	apperrors "turfbook/pkg/errors"
	httputil "turfbook/pkg/http"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type TurfHandler struct {
	service service.TurfService
	log     *logger.Logger
}

func NewTurfHandler(service service.TurfService, log *logger.Logger) *TurfHandler {
	return &TurfHandler{
		service: service,
		log:     log,
	}
}

func (h *TurfHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var turf model.Turf
	if err := httputil.DecodeJSON(r, &turf); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), auth.FromContext(r.Context()), &turf); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, turf); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TurfHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	turf, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, turf); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TurfHandler) Similar(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, "Similar", apperrors.InvalidInput("invalid limit parameter: "+v))
			return
		}
		limit = n
	}

	turfs, err := h.service.Similar(r.Context(), ps.ByName("id"), limit)
	if err != nil {
		h.writeError(w, "Similar", err)
		return
	}

	if err := httputil.WriteSuccess(w, turfs); err != nil {
		h.log.Error("failed to write success response", "handler", "Similar", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TurfHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	turfs, total, err := h.service.GetAll(r.Context(), r.URL.Query().Get("city"), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, turfs, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *TurfHandler) GetByOwner(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	turfs, err := h.service.GetByOwner(r.Context(), ps.ByName("owner_id"))
	if err != nil {
		h.writeError(w, "GetByOwner", err)
		return
	}

	if err := httputil.WriteSuccess(w, turfs); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByOwner", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TurfHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.TurfUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	turf, err := h.service.Update(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, turf); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TurfHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), auth.FromContext(r.Context()), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *TurfHandler) ToggleSlotBlock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.SlotBlockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "ToggleSlotBlock", err)
		return
	}

	blocked, err := h.service.ToggleSlotBlock(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "ToggleSlotBlock", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]any{
		"date":    req.Date,
		"slot_id": req.SlotID,
		"blocked": blocked,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "ToggleSlotBlock", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TurfHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TurfHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/turfs", h.Create)
	router.GET("/api/v1/turfs", h.GetAll)
	router.GET("/api/v1/turfs/id/:id", h.GetByID)
	router.GET("/api/v1/turfs/id/:id/similar", h.Similar)
	router.PATCH("/api/v1/turfs/id/:id", h.Update)
	router.DELETE("/api/v1/turfs/id/:id", h.Delete)
	router.POST("/api/v1/turfs/id/:id/blocks", h.ToggleSlotBlock)
	router.GET("/api/v1/turfs/owner/:owner_id", h.GetByOwner)
}
