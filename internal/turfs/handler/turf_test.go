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
	"turfbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockTurfService struct {
	createFunc func(ctx context.Context, actor auth.Principal, turf *model.Turf) error
	getAllFunc func(ctx context.Context, city string, limit int, offset int64) ([]*model.Turf, int64, error)
	getByID    func(ctx context.Context, id string) (*model.Turf, error)
	similarFn  func(ctx context.Context, id string, limit int) ([]*model.Turf, error)
}

func (m *mockTurfService) Create(ctx context.Context, actor auth.Principal, turf *model.Turf) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, turf)
	}
	return nil
}

func (m *mockTurfService) GetByID(ctx context.Context, id string) (*model.Turf, error) {
	if m.getByID != nil {
		return m.getByID(ctx, id)
	}
	return nil, apperrors.NotFoundWithID("Turf", id)
}

func (m *mockTurfService) GetAll(ctx context.Context, city string, limit int, offset int64) ([]*model.Turf, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, city, limit, offset)
	}
	return []*model.Turf{}, 0, nil
}

func (m *mockTurfService) GetByOwner(ctx context.Context, ownerID string) ([]*model.Turf, error) {
	return []*model.Turf{}, nil
}

func (m *mockTurfService) Similar(ctx context.Context, id string, limit int) ([]*model.Turf, error) {
	if m.similarFn != nil {
		return m.similarFn(ctx, id, limit)
	}
	return []*model.Turf{}, nil
}

func (m *mockTurfService) Update(ctx context.Context, actor auth.Principal, id string, updates *model.TurfUpdate) (*model.Turf, error) {
	return &model.Turf{ID: id}, nil
}

func (m *mockTurfService) Delete(ctx context.Context, actor auth.Principal, id string) error {
	return nil
}

func (m *mockTurfService) ToggleSlotBlock(ctx context.Context, actor auth.Principal, id string, req *model.SlotBlockRequest) (bool, error) {
	return true, nil
}

func newRouter(svc *mockTurfService) *httprouter.Router {
	router := httprouter.New()
	NewTurfHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestCreate_PassesPrincipal(t *testing.T) {
	var gotActor auth.Principal
	router := newRouter(&mockTurfService{
		createFunc: func(ctx context.Context, actor auth.Principal, turf *model.Turf) error {
			gotActor = actor
			turf.ID = "t1"
			return nil
		},
	})

	body := `{"name":"Green Arena","city":"Pune","address":"Baner","price_per_hour":900}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turfs", strings.NewReader(body))
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.NewPrincipal("owner-1", auth.RoleOwner)))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotActor.UserID != "owner-1" {
		t.Errorf("service received actor %q", gotActor.UserID)
	}

	var resp struct {
		Success bool       `json:"success"`
		Data    model.Turf `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || resp.Data.ID != "t1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestCreate_RejectsUnknownFields(t *testing.T) {
	router := newRouter(&mockTurfService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/turfs", strings.NewReader(`{"name":"x","owner":"y"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetAll_QueryParameters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCity   string
		wantLimit  int
		wantOffset int64
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK, wantLimit: 10},
		{name: "city and paging", query: "?city=pune&limit=20&offset=40", wantStatus: http.StatusOK, wantCity: "pune", wantLimit: 20, wantOffset: 40},
		{name: "invalid limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "invalid offset", query: "?offset=xyz", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var city string
			var limit int
			var offset int64
			router := newRouter(&mockTurfService{
				getAllFunc: func(ctx context.Context, c string, l int, o int64) ([]*model.Turf, int64, error) {
					city, limit, offset = c, l, o
					return []*model.Turf{}, 0, nil
				},
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/turfs"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if city != tt.wantCity || limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("service received city=%q limit=%d offset=%d", city, limit, offset)
			}
		})
	}
}

func TestGetByID_NotFound(t *testing.T) {
	router := newRouter(&mockTurfService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/turfs/id/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Errorf("expected error envelope, got %s", w.Body.String())
	}
}

func TestSimilar(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{name: "default limit", query: "", wantStatus: http.StatusOK, wantLimit: 0},
		{name: "explicit limit", query: "?limit=3", wantStatus: http.StatusOK, wantLimit: 3},
		{name: "invalid limit", query: "?limit=many", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			gotLimit := -1
			router := newRouter(&mockTurfService{
				similarFn: func(ctx context.Context, id string, limit int) ([]*model.Turf, error) {
					gotID, gotLimit = id, limit
					return []*model.Turf{{ID: "t2", City: "pune"}}, nil
				},
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/turfs/id/t1/similar"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if gotID != "t1" || gotLimit != tt.wantLimit {
				t.Errorf("service received id=%q limit=%d", gotID, gotLimit)
			}
			var body struct {
				Data []model.Turf `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Data) != 1 || body.Data[0].ID != "t2" {
				t.Errorf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestDelete_NoContent(t *testing.T) {
	router := newRouter(&mockTurfService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/turfs/id/t1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}
