package handler

import (
	"net/http"
	"turfbook/internal/slots/service"
	httputil "turfbook/pkg/http"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type CatalogHandler struct {
	catalog service.Catalog
	log     *logger.Logger
}

func NewCatalogHandler(catalog service.Catalog, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		log:     log,
	}
}

// Availability lists free slots for ?from=&to= (both YYYY-MM-DD, default today).
func (h *CatalogHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()

	slots, err := h.catalog.ListAvailable(r.Context(), ps.ByName("id"), query.Get("from"), query.Get("to"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) SlotStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	turfID, slotID := ps.ByName("id"), ps.ByName("slot_id")
	date := r.URL.Query().Get("date")

	free, err := h.catalog.IsFree(r.Context(), turfID, slotID, date)
	if err != nil {
		h.writeError(w, "SlotStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, model.SlotStatus{
		TurfID: turfID,
		SlotID: slotID,
		Date:   date,
		Free:   free,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "SlotStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CatalogHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/turfs/id/:id/availability", h.Availability)
	router.GET("/api/v1/turfs/id/:id/slots/:slot_id", h.SlotStatus)
}
