package consumed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/inventory"
	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxRating = 100

type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]RecordDTO, error)
	Record(ctx context.Context, userID uuid.UUID, req RecordRequest) (*RecordResult, error)
	Rate(ctx context.Context, userID, recordID uuid.UUID, req RateRequest) (*RecordDTO, error)
	Delete(ctx context.Context, userID, recordID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type consumedRepository interface {
	List(ctx context.Context, userID uuid.UUID) ([]recordRow, error)
	FindDetailed(ctx context.Context, userID, id uuid.UUID) (*recordRow, error)
	Create(ctx context.Context, record *models.ConsumedRecord) error
	UpdateReview(ctx context.Context, userID, id uuid.UUID, changes map[string]any) error
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	WineConsumable(ctx context.Context, userID, wineID uuid.UUID) (bool, error)
}

type inventoryConsumer interface {
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.InventoryEntry, error)
	ConsumeOne(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

type ServiceParams struct {
	TxRunner         txRunner
	Repo             consumedRepository
	RepoFactory      func(tx *gorm.DB) consumedRepository
	InventoryFactory func(tx *gorm.DB) inventoryConsumer
	Now              func() time.Time
}

type service struct {
	tx          txRunner
	repo        consumedRepository
	txRepo      func(tx *gorm.DB) consumedRepository
	txInventory func(tx *gorm.DB) inventoryConsumer
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("consumed repository is required")
	}
	svc := &service{
		tx:          params.TxRunner,
		repo:        params.Repo,
		txRepo:      params.RepoFactory,
		txInventory: params.InventoryFactory,
		now:         params.Now,
	}
	if svc.txRepo == nil {
		svc.txRepo = func(tx *gorm.DB) consumedRepository { return NewRepository(tx) }
	}
	if svc.txInventory == nil {
		svc.txInventory = func(tx *gorm.DB) inventoryConsumer { return inventory.NewRepository(tx) }
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]RecordDTO, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list consumed wines")
	}
	out := make([]RecordDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}

// Record logs a bottle as drunk. When an inventory entry is named it must hold
// the same wine, and it loses one bottle in the same transaction. Without an
// entry the wine must be the user's own, recommended to them, or in their
// cellar.
func (s *service) Record(ctx context.Context, userID uuid.UUID, req RecordRequest) (*RecordResult, error) {
	if req.WineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wine_id is required")
	}
	fromCellar := req.InventoryID != nil && *req.InventoryID != uuid.Nil

	record := &models.ConsumedRecord{
		UserID:     userID,
		WineID:     req.WineID,
		ConsumedAt: s.now().UTC(),
	}
	removed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		cellar := s.txInventory(tx)

		if fromCellar {
			entry, err := cellar.FindByID(ctx, userID, *req.InventoryID)
			if err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load inventory entry")
			}
			if entry.WineID != req.WineID {
				return pkgerrors.New(pkgerrors.CodeValidation, "inventory entry holds a different wine")
			}
		} else {
			ok, err := repo.WineConsumable(ctx, userID, req.WineID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load wine")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
			}
		}

		if err := repo.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record consumption")
		}
		if !fromCellar {
			return nil
		}

		var err error
		removed, err = cellar.ConsumeOne(ctx, userID, *req.InventoryID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update inventory")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	row, err := s.repo.FindDetailed(ctx, userID, record.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load consumed record")
	}
	return &RecordResult{Record: row.toDTO(), InventoryRemoved: removed}, nil
}

func (s *service) Rate(ctx context.Context, userID, recordID uuid.UUID, req RateRequest) (*RecordDTO, error) {
	if !req.Rating.Set && !req.Notes.Set {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	changes := map[string]any{}
	if req.Rating.Set {
		if req.Rating.Value != nil && (*req.Rating.Value < 0 || *req.Rating.Value > maxRating) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 0 and 100")
		}
		changes["rating"] = req.Rating.Value
	}
	if req.Notes.Set {
		changes["notes"] = trimmed(req.Notes.Value)
	}

	if err := s.repo.UpdateReview(ctx, userID, recordID, changes); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "consumed record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update consumed record")
	}

	row, err := s.repo.FindDetailed(ctx, userID, recordID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "consumed record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load consumed record")
	}
	dto := row.toDTO()
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, recordID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, userID, recordID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete consumed record")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "consumed record not found")
	}
	return nil
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
