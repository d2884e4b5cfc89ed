package wines

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/cellarbook-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
	"github.com/angelmondragon/cellarbook-backend/pkg/openai"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Service is the wine catalog: label scans, enrichment, and owner-scoped CRUD.
type Service interface {
	Scan(ctx context.Context, userID uuid.UUID, image string) (*ScanResult, error)
	MergeScan(ctx context.Context, userID, wineID uuid.UUID, image string) (*ScanResult, error)
	Update(ctx context.Context, userID, wineID uuid.UUID, req UpdateRequest) (*WineDTO, error)
	Get(ctx context.Context, userID, wineID uuid.UUID) (*WineDTO, error)
	Delete(ctx context.Context, userID, wineID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]WineDTO, error)
	Search(ctx context.Context, userID uuid.UUID, q string) ([]SearchResult, error)
}

type LabelReader interface {
	ReadLabel(ctx context.Context, image []byte, mimeType string) (*openai.Label, error)
}

type Enricher interface {
	Enrich(ctx context.Context, d openai.Descriptor) (*openai.Enrichment, error)
}

// PriceLookup returns nil when no price could be determined.
type PriceLookup interface {
	LookupPrice(ctx context.Context, d openai.Descriptor) (*string, error)
}

// ImageStore persists label photos and returns their public URL.
type ImageStore interface {
	Upload(ctx context.Context, object, contentType string, data []byte) (string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type wineRepository interface {
	Create(ctx context.Context, wine *models.Wine) error
	Save(ctx context.Context, wine *models.Wine) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Wine, error)
	FindByIdentity(ctx context.Context, ownerID uuid.UUID, id Identity) (*models.Wine, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Wine, error)
	Search(ctx context.Context, ownerID uuid.UUID, q string) ([]models.Wine, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
}

type ServiceParams struct {
	TxRunner    txRunner
	Repo        wineRepository
	RepoFactory func(tx *gorm.DB) wineRepository
	Labels      LabelReader
	Enricher    Enricher
	Prices      PriceLookup
	Images      ImageStore
	ImagePrefix string
	AITimeout   time.Duration
	Logger      *logger.Logger
}

type service struct {
	tx          txRunner
	repo        wineRepository
	txRepo      func(tx *gorm.DB) wineRepository
	labels      LabelReader
	enricher    Enricher
	prices      PriceLookup
	images      ImageStore
	imagePrefix string
	aiTimeout   time.Duration
	logg        *logger.Logger
}

// NewService wires the catalog. Images may be nil, in which case scans keep a
// null image URL.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("wine repository is required")
	}
	if params.Labels == nil {
		return nil, fmt.Errorf("label reader is required")
	}
	if params.Enricher == nil {
		return nil, fmt.Errorf("enricher is required")
	}
	if params.Prices == nil {
		return nil, fmt.Errorf("price lookup is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	factory := params.RepoFactory
	if factory == nil {
		factory = func(tx *gorm.DB) wineRepository { return NewRepository(tx) }
	}
	return &service{
		tx:          params.TxRunner,
		repo:        params.Repo,
		txRepo:      factory,
		labels:      params.Labels,
		enricher:    params.Enricher,
		prices:      params.Prices,
		images:      params.Images,
		imagePrefix: params.ImagePrefix,
		aiTimeout:   params.AITimeout,
		logg:        params.Logger,
	}, nil
}

func (s *service) Scan(ctx context.Context, userID uuid.UUID, image string) (*ScanResult, error) {
	img, err := decodeImage(image)
	if err != nil {
		return nil, err
	}

	label, err := s.readLabel(ctx, img)
	if err != nil {
		return nil, err
	}

	identity := Identity{Brand: label.Brand, Varietal: label.Varietal, Vintage: label.Vintage}
	existing, err := s.repo.FindByIdentity(ctx, userID, identity)
	if err == nil {
		return s.rescan(ctx, existing), nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to look up wine")
	}

	wine := wineFromLabel(userID, label)
	desc := descriptorFor(wine)

	var (
		enrichment *openai.Enrichment
		price      *string
		imageURL   *string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.enrich(gctx, desc)
		if err != nil {
			return err
		}
		enrichment = e
		return nil
	})
	g.Go(func() error {
		price = s.lookupPrice(gctx, desc)
		return nil
	})
	g.Go(func() error {
		imageURL = s.uploadImage(gctx, userID, img)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	applyEnrichment(wine, enrichment, true)
	wine.MarketPrice = price
	wine.ImageURL = imageURL

	if err := s.repo.Create(ctx, wine); err != nil {
		if db.IsUniqueViolation(err, "") {
			if raced, findErr := s.repo.FindByIdentity(ctx, userID, identityOf(wine)); findErr == nil {
				return scanResult(raced, false), nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to save wine")
	}
	return scanResult(wine, true), nil
}

// rescan returns an already catalogued wine, backfilling pairings when they
// were never filled in. Backfill failures leave the wine as it was.
func (s *service) rescan(ctx context.Context, wine *models.Wine) *ScanResult {
	if !wine.FoodPairings.IsEmpty() {
		return scanResult(wine, false)
	}

	enrichment, err := s.enrich(ctx, descriptorFor(wine))
	if err != nil {
		s.warn(ctx, "wines.pairings_backfill_failed", err)
		return scanResult(wine, false)
	}
	if len(enrichment.FoodPairings) == 0 {
		return scanResult(wine, false)
	}

	updated := *wine
	updated.FoodPairings = dbtypes.CommaList(enrichment.FoodPairings)
	if err := s.repo.Save(ctx, &updated); err != nil {
		s.warn(ctx, "wines.pairings_backfill_save_failed", err)
		return scanResult(wine, false)
	}
	return scanResult(&updated, false)
}

func (s *service) MergeScan(ctx context.Context, userID, wineID uuid.UUID, image string) (*ScanResult, error) {
	current, err := s.repo.FindByID(ctx, userID, wineID)
	if err != nil {
		return nil, wineLookupError(err)
	}

	img, err := decodeImage(image)
	if err != nil {
		return nil, err
	}
	label, err := s.readLabel(ctx, img)
	if err != nil {
		return nil, err
	}

	merged := *current
	mergeLabel(&merged, label)
	enrichment, price, err := s.enrichAndPrice(ctx, descriptorFor(&merged))
	if err != nil {
		return nil, err
	}

	saved, err := s.persist(ctx, userID, wineID, func(w *models.Wine) {
		mergeLabel(w, label)
		applyEnrichment(w, enrichment, true)
		if price != nil {
			w.MarketPrice = price
		}
	})
	if err != nil {
		return nil, err
	}
	return scanResult(saved, false), nil
}

func (s *service) Update(ctx context.Context, userID, wineID uuid.UUID, req UpdateRequest) (*WineDTO, error) {
	if !req.hasFieldChanges() && !req.Rescore {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if req.Brand.Set && (req.Brand.Value == nil || strings.TrimSpace(*req.Brand.Value) == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand cannot be blank")
	}

	var (
		enrichment *openai.Enrichment
		price      *string
	)
	if req.Rescore {
		current, err := s.repo.FindByID(ctx, userID, wineID)
		if err != nil {
			return nil, wineLookupError(err)
		}
		preview := *current
		applyUpdate(&preview, req)
		enrichment, price, err = s.enrichAndPrice(ctx, descriptorFor(&preview))
		if err != nil {
			return nil, err
		}
	}

	saved, err := s.persist(ctx, userID, wineID, func(w *models.Wine) {
		applyUpdate(w, req)
		if enrichment != nil {
			applyEnrichment(w, enrichment, !req.FoodPairings.Set)
		}
		if price != nil {
			w.MarketPrice = price
		}
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(saved)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, userID, wineID uuid.UUID) (*WineDTO, error) {
	wine, err := s.repo.FindByID(ctx, userID, wineID)
	if err != nil {
		return nil, wineLookupError(err)
	}
	dto := FromModel(wine)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, wineID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, userID, wineID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete wine")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]WineDTO, error) {
	rows, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list wines")
	}
	out := make([]WineDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Search(ctx context.Context, userID uuid.UUID, q string) ([]SearchResult, error) {
	rows, err := s.repo.Search(ctx, userID, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to search wines")
	}
	out := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, SearchResult{ID: row.ID, Brand: row.Brand, Varietal: row.Varietal, Vintage: row.Vintage})
	}
	return out, nil
}

// persist reloads the wine inside a transaction, applies mutate, and saves it,
// rejecting a change that would collide with another catalogued wine.
func (s *service) persist(ctx context.Context, userID, wineID uuid.UUID, mutate func(*models.Wine)) (*models.Wine, error) {
	var saved *models.Wine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		wine, err := repo.FindByID(ctx, userID, wineID)
		if err != nil {
			return wineLookupError(err)
		}
		mutate(wine)

		other, err := repo.FindByIdentity(ctx, userID, identityOf(wine))
		switch {
		case err == nil && other.ID != wine.ID:
			return duplicateWineError()
		case err != nil && !db.IsNotFound(err):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check wine identity")
		}

		if err := repo.Save(ctx, wine); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateWineError()
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to save wine")
		}
		saved = wine
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *service) readLabel(ctx context.Context, img decodedImage) (*openai.Label, error) {
	ctx, cancel := s.aiContext(ctx)
	defer cancel()

	label, err := s.labels.ReadLabel(ctx, img.data, img.mimeType)
	if err != nil {
		return nil, dependencyError(err, "label recognition failed")
	}
	if label == nil || strings.TrimSpace(label.Brand) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "could not identify wine from label")
	}
	return label, nil
}

func (s *service) enrich(ctx context.Context, desc openai.Descriptor) (*openai.Enrichment, error) {
	ctx, cancel := s.aiContext(ctx)
	defer cancel()

	enrichment, err := s.enricher.Enrich(ctx, desc)
	if err != nil {
		return nil, dependencyError(err, "wine enrichment failed")
	}
	if enrichment == nil {
		return &openai.Enrichment{}, nil
	}
	return enrichment, nil
}

func (s *service) lookupPrice(ctx context.Context, desc openai.Descriptor) *string {
	ctx, cancel := s.aiContext(ctx)
	defer cancel()

	price, err := s.prices.LookupPrice(ctx, desc)
	if err != nil {
		s.warn(ctx, "wines.price_lookup_failed", err)
		return nil
	}
	return price
}

func (s *service) enrichAndPrice(ctx context.Context, desc openai.Descriptor) (*openai.Enrichment, *string, error) {
	var (
		enrichment *openai.Enrichment
		price      *string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.enrich(gctx, desc)
		if err != nil {
			return err
		}
		enrichment = e
		return nil
	})
	g.Go(func() error {
		price = s.lookupPrice(gctx, desc)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return enrichment, price, nil
}

func (s *service) uploadImage(ctx context.Context, userID uuid.UUID, img decodedImage) *string {
	if s.images == nil {
		return nil
	}
	url, err := s.images.Upload(ctx, labelObjectName(s.imagePrefix, userID, img.mimeType), img.mimeType, img.data)
	if err != nil {
		s.warn(ctx, "wines.label_upload_failed", err)
		return nil
	}
	return &url
}

func (s *service) aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.aiTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.aiTimeout)
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if err != nil {
		ctx = s.logg.WithField(ctx, "error", err.Error())
	}
	s.logg.Warn(ctx, msg)
}

func dependencyError(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message+": timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func wineLookupError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load wine")
}

func duplicateWineError() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "a wine with this brand, varietal and vintage already exists")
}

func scanResult(wine *models.Wine, created bool) *ScanResult {
	return &ScanResult{
		Wine:           FromModel(wine),
		Created:        created,
		NeedsBackLabel: IsSparse(wine),
	}
}
