package cellar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/cellarbook-backend/api/middleware"
	"github.com/angelmondragon/cellarbook-backend/internal/consumed"
	"github.com/angelmondragon/cellarbook-backend/internal/inventory"
	"github.com/angelmondragon/cellarbook-backend/internal/wishlist"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
)

type stubInventory struct {
	inventory.Service
	update inventory.UpdateRequest
}

func (s *stubInventory) Update(_ context.Context, _, _ uuid.UUID, req inventory.UpdateRequest) (*inventory.UpdateResult, error) {
	s.update = req
	if req.Quantity.Set && req.Quantity.Value != nil && *req.Quantity.Value == 0 && !req.ConfirmRemove {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "removing the last bottle requires confirmation").
			WithDetails(map[string]bool{"requires_confirmation": true})
	}
	return &inventory.UpdateResult{Removed: true}, nil
}

type stubWishlist struct {
	wishlist.Service
	quantity *int
	called   bool
}

func (s *stubWishlist) MoveToInventory(_ context.Context, _, _ uuid.UUID, quantity *int) (*wishlist.MoveResult, error) {
	s.called, s.quantity = true, quantity
	return &wishlist.MoveResult{InventoryID: uuid.New(), Quantity: 1}, nil
}

type stubConsumed struct {
	consumed.Service
	req consumed.RecordRequest
}

func (s *stubConsumed) Record(_ context.Context, _ uuid.UUID, req consumed.RecordRequest) (*consumed.RecordResult, error) {
	s.req = req
	return &consumed.RecordResult{InventoryRemoved: true}, nil
}

func authed(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), userID)))
		})
	}
}

func TestUpdateInventoryRequiresConfirmation(t *testing.T) {
	svc := &stubInventory{}
	r := chi.NewRouter()
	r.Use(authed(uuid.New()))
	r.Patch("/inventory/{entryId}", UpdateInventory(svc, nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/inventory/"+uuid.NewString(), strings.NewReader(`{"quantity":0}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code    string          `json:"code"`
			Details map[string]bool `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeStateConflict) || !payload.Error.Details["requires_confirmation"] {
		t.Fatalf("unexpected error payload %+v", payload.Error)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/inventory/"+uuid.NewString(), strings.NewReader(`{"quantity":0,"confirm_remove":true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !svc.update.ConfirmRemove {
		t.Fatal("expected confirmation to reach the service")
	}
}

func TestMoveWishlistBodyIsOptional(t *testing.T) {
	svc := &stubWishlist{}
	r := chi.NewRouter()
	r.Use(authed(uuid.New()))
	r.Post("/wishlist/{entryId}/move", MoveWishlist(svc, nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wishlist/"+uuid.NewString()+"/move", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.called || svc.quantity != nil {
		t.Fatalf("expected nil quantity, got %v", svc.quantity)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wishlist/"+uuid.NewString()+"/move", strings.NewReader(`{"quantity":3}`)))
	if rec.Code != http.StatusOK || svc.quantity == nil || *svc.quantity != 3 {
		t.Fatalf("expected quantity 3, got %d %v", rec.Code, svc.quantity)
	}
}

func TestRecordConsumedCreated(t *testing.T) {
	svc := &stubConsumed{}
	wineID, entryID := uuid.New(), uuid.New()
	body := `{"wine_id":"` + wineID.String() + `","inventory_id":"` + entryID.String() + `"}`

	rec := httptest.NewRecorder()
	handler := authed(uuid.New())(RecordConsumed(svc, nil))
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/consumed", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.req.WineID != wineID || svc.req.InventoryID == nil || *svc.req.InventoryID != entryID {
		t.Fatalf("unexpected request %+v", svc.req)
	}
}

func TestRecordConsumedRequiresWine(t *testing.T) {
	rec := httptest.NewRecorder()
	handler := authed(uuid.New())(RecordConsumed(&stubConsumed{}, nil))
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/consumed", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCellarHandlersRequireUser(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"inventory": ListInventory(&stubInventory{}, nil),
		"wishlist":  ListWishlist(&stubWishlist{}, nil),
		"consumed":  ListConsumed(&stubConsumed{}, nil),
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", name, rec.Code)
		}
	}
}
