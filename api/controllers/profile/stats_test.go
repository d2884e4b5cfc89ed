package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cellarbook-backend/api/middleware"
	"github.com/angelmondragon/cellarbook-backend/internal/stats"
)

type stubStats struct {
	userID  uuid.UUID
	profile *stats.Profile
}

func (s *stubStats) Profile(_ context.Context, userID uuid.UUID) (*stats.Profile, error) {
	s.userID = userID
	return s.profile, nil
}

func TestStatsScopesToCaller(t *testing.T) {
	userID := uuid.New()
	svc := &stubStats{profile: &stats.Profile{
		Cellar: stats.CellarStats{TotalBottles: 7, TotalValue: decimal.NullDecimal{Decimal: decimal.RequireFromString("120.50"), Valid: true}},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/stats", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	Stats(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.userID != userID {
		t.Fatalf("expected stats for %s, got %s", userID, svc.userID)
	}
	var envelope struct {
		Data struct {
			Cellar struct {
				TotalBottles int64  `json:"total_bottles"`
				TotalValue   string `json:"total_value"`
			} `json:"cellar"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Cellar.TotalBottles != 7 || envelope.Data.Cellar.TotalValue != "120.5" {
		t.Fatalf("unexpected cellar stats %+v", envelope.Data.Cellar)
	}
}

func TestStatsRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	Stats(&stubStats{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profile/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
