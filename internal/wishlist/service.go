package wishlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/cellarbook-backend/internal/inventory"
	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes business rules for wishlist management.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]EntryDTO, error)
	Add(ctx context.Context, userID uuid.UUID, req AddRequest) (*EntryDTO, error)
	Delete(ctx context.Context, userID, entryID uuid.UUID) error
	MoveToInventory(ctx context.Context, userID, entryID uuid.UUID, quantity *int) (*MoveResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type wishlistRepository interface {
	List(ctx context.Context, userID uuid.UUID) ([]entryRecord, error)
	FindDetailed(ctx context.Context, userID, id uuid.UUID) (*entryRecord, error)
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.WishlistEntry, error)
	Create(ctx context.Context, entry *models.WishlistEntry) error
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	WineVisible(ctx context.Context, userID, wineID uuid.UUID) (bool, error)
}

type inventoryCreator interface {
	Create(ctx context.Context, entry *models.InventoryEntry) error
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	TxRunner         txRunner
	Repo             wishlistRepository
	RepoFactory      func(tx *gorm.DB) wishlistRepository
	InventoryFactory func(tx *gorm.DB) inventoryCreator
}

type service struct {
	tx          txRunner
	repo        wishlistRepository
	txRepo      func(tx *gorm.DB) wishlistRepository
	txInventory func(tx *gorm.DB) inventoryCreator
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("wishlist repository is required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = func(tx *gorm.DB) wishlistRepository { return NewRepository(tx) }
	}
	inventoryFactory := params.InventoryFactory
	if inventoryFactory == nil {
		inventoryFactory = func(tx *gorm.DB) inventoryCreator { return inventory.NewRepository(tx) }
	}
	return &service{
		tx:          params.TxRunner,
		repo:        params.Repo,
		txRepo:      repoFactory,
		txInventory: inventoryFactory,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]EntryDTO, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list wishlist")
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
	priority := defaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	if priority < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "priority cannot be negative")
	}

	visible, err := s.repo.WineVisible(ctx, userID, req.WineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load wine")
	}
	if !visible {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
	}

	entry := &models.WishlistEntry{
		UserID:   userID,
		WineID:   req.WineID,
		Priority: priority,
		Notes:    trimmed(req.Notes),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to add wishlist entry")
	}

	row, err := s.repo.FindDetailed(ctx, userID, entry.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load wishlist entry")
	}
	dto := row.toDTO()
	return &dto, nil
}

// Delete drops the entry. Unknown or foreign entries are not found.
func (s *service) Delete(ctx context.Context, userID, entryID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, userID, entryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete wishlist entry")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist entry not found")
	}
	return nil
}

// MoveToInventory swaps a wishlist entry for an inventory entry in one
// transaction, so exactly one of the two rows exists afterwards.
func (s *service) MoveToInventory(ctx context.Context, userID, entryID uuid.UUID, quantity *int) (*MoveResult, error) {
	qty := 1
	if quantity != nil && *quantity > 0 {
		qty = *quantity
	}

	var result *MoveResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		entry, err := repo.FindByID(ctx, userID, entryID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist entry not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load wishlist entry")
		}

		inv := &models.InventoryEntry{
			UserID:   userID,
			WineID:   entry.WineID,
			Quantity: qty,
			Notes:    entry.Notes,
		}
		if err := s.txInventory(tx).Create(ctx, inv); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create inventory entry")
		}

		deleted, err := repo.Delete(ctx, userID, entryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to remove wishlist entry")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist entry not found")
		}

		result = &MoveResult{InventoryID: inv.ID, WineID: inv.WineID, Quantity: inv.Quantity}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
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
