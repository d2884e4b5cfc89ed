package wines

import (
	"context"
	"strings"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const searchLimit = 50

// Repository is the owner-scoped persistence layer for the wine catalog.
// Every query carries a created_by predicate.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Identity is the dedup tuple of a wine as read from its label.
type Identity struct {
	Brand    string
	Varietal *string
	Vintage  *int
}

// identityOf is the dedup tuple of a stored wine. An inferred varietal is left
// out.
func identityOf(w *models.Wine) Identity {
	id := Identity{Brand: w.Brand, Varietal: w.Varietal, Vintage: w.Vintage}
	if w.VarietalInferred {
		id.Varietal = nil
	}
	return id
}

func (r *Repository) Create(ctx context.Context, wine *models.Wine) error {
	if wine.ID == uuid.Nil {
		wine.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(wine).Error
}

// Save writes every column of wine. The owner predicate guards against a
// caller that loaded the row through another path.
func (r *Repository) Save(ctx context.Context, wine *models.Wine) error {
	res := r.db.WithContext(ctx).
		Model(&models.Wine{}).
		Where("id = ? AND created_by = ?", wine.ID, wine.CreatedBy).
		Select("*").
		Omit("id", "created_by", "created_at").
		Updates(wine)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Wine, error) {
	var wine models.Wine
	err := r.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, ownerID).
		First(&wine).Error
	if err != nil {
		return nil, err
	}
	return &wine, nil
}

// FindByIdentity resolves a label read to a stored wine. Brand and varietal
// compare case-insensitively; a NULL vintage only matches NULL. A varietal that
// enrichment inferred is not part of the identity, so it is matched by a label
// with no varietal and never by one that names it. This mirrors the
// wines_identity_key unique index.
func (r *Repository) FindByIdentity(ctx context.Context, ownerID uuid.UUID, id Identity) (*models.Wine, error) {
	q := r.db.WithContext(ctx).
		Where("created_by = ? AND LOWER(brand) = ?", ownerID, strings.ToLower(strings.TrimSpace(id.Brand)))
	if id.Vintage == nil {
		q = q.Where("vintage IS NULL")
	} else {
		q = q.Where("vintage = ?", *id.Vintage)
	}
	if id.Varietal != nil && strings.TrimSpace(*id.Varietal) != "" {
		q = q.Where("varietal_inferred = ? AND LOWER(varietal) = ?", false, strings.ToLower(strings.TrimSpace(*id.Varietal)))
	} else {
		q = q.Where("(varietal IS NULL OR varietal_inferred = ?)", true)
	}

	var wine models.Wine
	if err := q.First(&wine).Error; err != nil {
		return nil, err
	}
	return &wine, nil
}

// ListByOwner returns the caller's wines, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Wine, error) {
	var rows []models.Wine
	err := r.db.WithContext(ctx).
		Where("created_by = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// Search matches q as a case-insensitive substring of brand or varietal.
func (r *Repository) Search(ctx context.Context, ownerID uuid.UUID, q string) ([]models.Wine, error) {
	query := r.db.WithContext(ctx).
		Select("id", "brand", "varietal", "vintage").
		Where("created_by = ?", ownerID)

	if term := strings.ToLower(strings.TrimSpace(q)); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		query = query.Where(`(LOWER(brand) LIKE ? ESCAPE '\' OR LOWER(varietal) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var rows []models.Wine
	err := query.Order("brand ASC").Limit(searchLimit).Find(&rows).Error
	return rows, err
}

// Delete removes the wine and reports whether a row matched.
func (r *Repository) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, ownerID).
		Delete(&models.Wine{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Exists reports whether ownerID owns a wine with id.
func (r *Repository) Exists(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Wine{}).
		Where("id = ? AND created_by = ?", id, ownerID).
		Count(&count).Error
	return count > 0, err
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
