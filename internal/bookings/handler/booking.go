package handler

import (
	"net/http"
	"turfbook/internal/bookings/service"
	"turfbook/pkg/auth"
	apperrors "turfbook/pkg/errors"
	httputil "turfbook/pkg/http"
	"turfbook/pkg/logger"
	"turfbook/pkg/middleware"
	"turfbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	admission service.AdmissionService
	ledger    service.LedgerService
	log       *logger.Logger
}

func NewBookingHandler(admission service.AdmissionService, ledger service.LedgerService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		admission: admission,
		ledger:    ledger,
		log:       log,
	}
}

func (h *BookingHandler) Reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ReserveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	booking, err := h.admission.Reserve(r.Context(), auth.FromContext(r.Context()), &req)
	if err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	booking, err := h.admission.Confirm(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Confirm", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.admission.GetByID(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// Search serves the ledger. Exactly one of userId, turfId or ownerId selects
// the query; with none the caller's own bookings are returned.
func (h *BookingHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	query := r.URL.Query()
	userID, turfID, ownerID := query.Get("userId"), query.Get("turfId"), query.Get("ownerId")
	selectors := 0
	for _, v := range []string{userID, turfID, ownerID} {
		if v != "" {
			selectors++
		}
	}
	if selectors > 1 {
		h.writeError(w, "Search", apperrors.InvalidInput("only one of userId, turfId or ownerId may be set"))
		return
	}

	actor := auth.FromContext(r.Context())
	var page *model.BookingPage
	switch {
	case turfID != "":
		page, err = h.ledger.FindByTurf(r.Context(), actor, turfID, limit, offset)
	case ownerID != "":
		page, err = h.ledger.FindByOwner(r.Context(), actor, ownerID, limit, offset)
	default:
		page, err = h.ledger.FindByUser(r.Context(), actor, userID, limit, offset)
	}
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WritePaginated(w, page.Bookings, page.TotalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.CancelRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(w, "Cancel", err)
			return
		}
	}

	booking, err := h.admission.Cancel(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), req.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

// confirmByOperator serves confirm when no webhook secret is configured.
// Only a principal allowed to confirm payments may settle a hold.
func (h *BookingHandler) confirmByOperator(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := auth.FromContext(r.Context())
	if !actor.Authenticated() {
		h.writeError(w, "Confirm", apperrors.Unauthorized("payment confirmation requires a signed webhook or an operator token"))
		return
	}
	if !actor.Can(auth.CapConfirmPayments) {
		h.writeError(w, "Confirm", apperrors.Forbidden("not allowed to confirm payments"))
		return
	}
	h.Confirm(w, r, ps)
}

// RegisterRoutes mounts the booking API. A non-empty webhookSecret puts HMAC
// signature verification in front of the confirm endpoint; without one the
// endpoint is limited to operators.
func (h *BookingHandler) RegisterRoutes(router *httprouter.Router, webhookSecret string) {
	router.POST("/api/v1/bookings", h.Reserve)
	router.GET("/api/v1/bookings", h.Search)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)

	if webhookSecret == "" {
		router.POST("/api/v1/bookings/confirm", h.confirmByOperator)
		return
	}
	confirm := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Confirm(w, r, nil)
	})
	router.Handler(http.MethodPost, "/api/v1/bookings/confirm",
		middleware.PaymentSignatureVerification(webhookSecret, h.log)(confirm))
}
