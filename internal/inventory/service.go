package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfirmationRequiredDetails is attached to the state conflict returned when a
// quantity of zero arrives without confirm_remove.
var ConfirmationRequiredDetails = map[string]any{"requires_confirmation": true}

type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]EntryDTO, error)
	Add(ctx context.Context, userID uuid.UUID, req AddRequest) (*EntryDTO, error)
	Update(ctx context.Context, userID, entryID uuid.UUID, req UpdateRequest) (*UpdateResult, error)
	Delete(ctx context.Context, userID, entryID uuid.UUID) error
}

type inventoryRepository interface {
	List(ctx context.Context, userID uuid.UUID) ([]entryRecord, error)
	FindDetailed(ctx context.Context, userID, id uuid.UUID) (*entryRecord, error)
	Create(ctx context.Context, entry *models.InventoryEntry) error
	Update(ctx context.Context, userID, id uuid.UUID, changes map[string]any) error
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

// wineOwnership reports whether a catalog wine belongs to the user.
type wineOwnership interface {
	Exists(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
}

type ServiceParams struct {
	Repo  inventoryRepository
	Wines wineOwnership
}

type service struct {
	repo  inventoryRepository
	wines wineOwnership
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository is required")
	}
	if params.Wines == nil {
		return nil, fmt.Errorf("wine repository is required")
	}
	return &service{repo: params.Repo, wines: params.Wines}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]EntryDTO, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list inventory")
	}
	out := make([]EntryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, req AddRequest) (*EntryDTO, error) {
	if req.WineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wine_id is required")
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if req.PurchasePrice.Valid && req.PurchasePrice.Decimal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase_price cannot be negative")
	}
	purchaseDate, err := parseDate(req.PurchaseDate)
	if err != nil {
		return nil, err
	}

	owned, err := s.wines.Exists(ctx, userID, req.WineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load wine")
	}
	if !owned {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
	}

	entry := &models.InventoryEntry{
		UserID:        userID,
		WineID:        req.WineID,
		Quantity:      quantity,
		PurchaseDate:  purchaseDate,
		PurchasePrice: req.PurchasePrice,
		Notes:         trimmed(req.Notes),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to add inventory entry")
	}
	return s.load(ctx, userID, entry.ID)
}

func (s *service) Update(ctx context.Context, userID, entryID uuid.UUID, req UpdateRequest) (*UpdateResult, error) {
	if req.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	changes := map[string]any{}
	if req.Quantity.Set {
		if req.Quantity.Value == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be null")
		}
		quantity := *req.Quantity.Value
		switch {
		case quantity < 0:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		case quantity == 0 && !req.ConfirmRemove:
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "confirmation required to remove the last bottle").
				WithDetails(ConfirmationRequiredDetails)
		case quantity == 0:
			if err := s.Delete(ctx, userID, entryID); err != nil {
				return nil, err
			}
			return &UpdateResult{Removed: true}, nil
		}
		changes["quantity"] = quantity
	}
	if req.PurchaseDate.Set {
		date, err := parseDate(req.PurchaseDate.Value)
		if err != nil {
			return nil, err
		}
		changes["purchase_date"] = date
	}
	if req.PurchasePrice.Set {
		price := decimal.NullDecimal{}
		if req.PurchasePrice.Value != nil {
			if req.PurchasePrice.Value.IsNegative() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase_price cannot be negative")
			}
			price = decimal.NewNullDecimal(*req.PurchasePrice.Value)
		}
		changes["purchase_price"] = price
	}
	if req.Notes.Set {
		changes["notes"] = trimmed(req.Notes.Value)
	}

	if err := s.repo.Update(ctx, userID, entryID, changes); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update inventory entry")
	}
	entry, err := s.load(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Entry: entry}, nil
}

func (s *service) Delete(ctx context.Context, userID, entryID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, userID, entryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete inventory entry")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID, entryID uuid.UUID) (*EntryDTO, error) {
	row, err := s.repo.FindDetailed(ctx, userID, entryID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load inventory entry")
	}
	dto := row.toDTO()
	return &dto, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if t, err := time.Parse(dateLayout, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "purchase_date must be YYYY-MM-DD")
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
