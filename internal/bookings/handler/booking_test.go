package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"turfbook/pkg/auth"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/logger"
	"turfbook/pkg/middleware"
	"turfbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockAdmissionService struct {
	reserveFunc func(ctx context.Context, actor auth.Principal, req *model.ReserveRequest) (*model.Booking, error)
	confirmFunc func(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error)
	cancelFunc  func(ctx context.Context, actor auth.Principal, id, reason string) (*model.Booking, error)
}

func (m *mockAdmissionService) Reserve(ctx context.Context, actor auth.Principal, req *model.ReserveRequest) (*model.Booking, error) {
	if m.reserveFunc != nil {
		return m.reserveFunc(ctx, actor, req)
	}
	return &model.Booking{ID: "b1", Status: model.BookingPending}, nil
}

func (m *mockAdmissionService) Confirm(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error) {
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, req)
	}
	return &model.Booking{ID: req.BookingID, Status: model.BookingConfirmed}, nil
}

func (m *mockAdmissionService) Cancel(ctx context.Context, actor auth.Principal, id, reason string) (*model.Booking, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, actor, id, reason)
	}
	return &model.Booking{ID: id, Status: model.BookingCancelled}, nil
}

func (m *mockAdmissionService) ExpireHolds(ctx context.Context) (int, error) {
	return 0, nil
}

func (m *mockAdmissionService) GetByID(ctx context.Context, actor auth.Principal, id string) (*model.Booking, error) {
	return nil, apperrors.NotFoundWithID("Booking", id)
}

type mockLedgerService struct {
	calls []string
}

func (m *mockLedgerService) FindByUser(ctx context.Context, actor auth.Principal, userID string, limit int, offset int64) (*model.BookingPage, error) {
	m.calls = append(m.calls, "user:"+userID)
	return &model.BookingPage{Bookings: []*model.Booking{}}, nil
}

func (m *mockLedgerService) FindByTurf(ctx context.Context, actor auth.Principal, turfID string, limit int, offset int64) (*model.BookingPage, error) {
	m.calls = append(m.calls, "turf:"+turfID)
	return &model.BookingPage{Bookings: []*model.Booking{{ID: "b1"}}, TotalCount: 1}, nil
}

func (m *mockLedgerService) FindByOwner(ctx context.Context, actor auth.Principal, ownerID string, limit int, offset int64) (*model.BookingPage, error) {
	m.calls = append(m.calls, "owner:"+ownerID)
	return &model.BookingPage{Bookings: []*model.Booking{}}, nil
}

func newRouter(admission *mockAdmissionService, ledger *mockLedgerService, secret string) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(admission, ledger, logger.Discard()).RegisterRoutes(router, secret)
	return router
}

func withUser(req *http.Request, id string) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), auth.NewPrincipal(id, auth.RoleUser)))
}

func TestReserve_Created(t *testing.T) {
	var got *model.ReserveRequest
	var gotActor auth.Principal
	router := newRouter(&mockAdmissionService{
		reserveFunc: func(ctx context.Context, actor auth.Principal, req *model.ReserveRequest) (*model.Booking, error) {
			got, gotActor = req, actor
			return &model.Booking{ID: "b1", Status: model.BookingPending}, nil
		},
	}, &mockLedgerService{}, "")

	body := `{"turf_id":"t1","slot_id":"10:00-11:00","date":"2026-03-02","number_of_players":5}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)), "u1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotActor.UserID != "u1" || got.SlotID != "10:00-11:00" || got.NumberOfPlayers != 5 {
		t.Errorf("service received %+v as %q", got, gotActor.UserID)
	}
}

func TestReserve_ConflictCarriesNextAvailable(t *testing.T) {
	router := newRouter(&mockAdmissionService{
		reserveFunc: func(ctx context.Context, actor auth.Principal, req *model.ReserveRequest) (*model.Booking, error) {
			return nil, apperrors.Conflict("Slot already taken").
				WithDetail("next_available", &model.AvailableSlot{SlotID: "11:00-12:00", Date: req.Date})
		},
	}, &mockLedgerService{}, "")

	body := `{"turf_id":"t1","slot_id":"10:00-11:00","date":"2026-03-02"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var resp struct {
		Success bool `json:"success"`
		Details struct {
			NextAvailable model.AvailableSlot `json:"next_available"`
		} `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Success || resp.Details.NextAvailable.SlotID != "11:00-12:00" {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestConfirm_Signature(t *testing.T) {
	const secret = "webhook-secret"
	body := `{"booking_id":"b1","success":true,"transaction_id":"txn-1"}`

	tests := []struct {
		name       string
		signature  string
		wantStatus int
	}{
		{"valid", middleware.SignPayload([]byte(body), secret), http.StatusOK},
		{"prefixed", "sha256=" + middleware.SignPayload([]byte(body), secret), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", middleware.SignPayload([]byte(body), "other"), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *model.ConfirmRequest
			router := newRouter(&mockAdmissionService{
				confirmFunc: func(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error) {
					got = req
					return &model.Booking{ID: req.BookingID, Status: model.BookingConfirmed}, nil
				},
			}, &mockLedgerService{}, secret)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/confirm", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(middleware.PaymentSignatureHeader, tt.signature)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && (got == nil || got.TransactionID != "txn-1" || !got.Success) {
				t.Errorf("service received %+v", got)
			}
		})
	}
}

func TestConfirm_WithoutSecret(t *testing.T) {
	tests := []struct {
		name       string
		principal  *auth.Principal
		wantStatus int
		wantCalled bool
	}{
		{"anonymous", nil, http.StatusUnauthorized, false},
		{"regular user", ptr(auth.NewPrincipal("u1", auth.RoleUser)), http.StatusForbidden, false},
		{"turf owner", ptr(auth.NewPrincipal("o1", auth.RoleOwner)), http.StatusForbidden, false},
		{"admin", ptr(auth.NewPrincipal("a1", auth.RoleAdmin)), http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			router := newRouter(&mockAdmissionService{
				confirmFunc: func(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error) {
					called = true
					return &model.Booking{ID: req.BookingID, Status: model.BookingConfirmed}, nil
				},
			}, &mockLedgerService{}, "")

			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/confirm",
				strings.NewReader(`{"booking_id":"b1","success":true,"transaction_id":"txn-1"}`))
			if tt.principal != nil {
				req = req.WithContext(auth.WithPrincipal(req.Context(), *tt.principal))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if called != tt.wantCalled {
				t.Errorf("expected confirm called = %v, got %v", tt.wantCalled, called)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestSearch_SelectsLedgerQuery(t *testing.T) {
	tests := []struct {
		query      string
		wantStatus int
		wantCall   string
	}{
		{"", http.StatusOK, "user:"},
		{"?userId=u2", http.StatusOK, "user:u2"},
		{"?turfId=t1", http.StatusOK, "turf:t1"},
		{"?ownerId=o1&limit=5&offset=10", http.StatusOK, "owner:o1"},
		{"?turfId=t1&ownerId=o1", http.StatusBadRequest, ""},
		{"?limit=abc", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ledger := &mockLedgerService{}
			router := newRouter(&mockAdmissionService{}, ledger, "")

			req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/bookings"+tt.query, nil), "u1")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantCall == "" {
				if len(ledger.calls) != 0 {
					t.Errorf("ledger should not be called, got %v", ledger.calls)
				}
				return
			}
			if len(ledger.calls) != 1 || ledger.calls[0] != tt.wantCall {
				t.Errorf("expected call %q, got %v", tt.wantCall, ledger.calls)
			}
		})
	}
}

func TestSearch_EmptyListIs200(t *testing.T) {
	router := newRouter(&mockAdmissionService{}, &mockLedgerService{}, "")

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/bookings?userId=u1", nil), "u1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", w.Body.String())
	}
}

func TestCancel_PassesReason(t *testing.T) {
	var gotID, gotReason string
	router := newRouter(&mockAdmissionService{
		cancelFunc: func(ctx context.Context, actor auth.Principal, id, reason string) (*model.Booking, error) {
			gotID, gotReason = id, reason
			return &model.Booking{ID: id, Status: model.BookingCancelled}, nil
		},
	}, &mockLedgerService{}, "")

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/bookings/id/b1/cancel",
		strings.NewReader(`{"reason":"rain"}`)), "u1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotID != "b1" || gotReason != "rain" {
		t.Errorf("service received id=%q reason=%q", gotID, gotReason)
	}

	req = withUser(httptest.NewRequest(http.MethodPost, "/api/v1/bookings/id/b2/cancel", nil), "u1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || gotID != "b2" || gotReason != "" {
		t.Errorf("empty body cancel: status %d id=%q reason=%q", w.Code, gotID, gotReason)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	router := newRouter(&mockAdmissionService{}, &mockLedgerService{}, "")

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/missing", nil), "u1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
