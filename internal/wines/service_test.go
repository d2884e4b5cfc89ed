package wines

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/cellarbook-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
	"github.com/angelmondragon/cellarbook-backend/pkg/openai"
	"github.com/angelmondragon/cellarbook-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

type fakeLabels struct {
	label *openai.Label
	err   error
	calls int
}

func (f *fakeLabels) ReadLabel(ctx context.Context, image []byte, mimeType string) (*openai.Label, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.label
	return &out, nil
}

type fakeEnricher struct {
	mu     sync.Mutex
	result *openai.Enrichment
	err    error
	block  bool
	calls  []openai.Descriptor
}

func (f *fakeEnricher) Enrich(ctx context.Context, d openai.Descriptor) (*openai.Enrichment, error) {
	f.mu.Lock()
	f.calls = append(f.calls, d)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := *f.result
	return &out, nil
}

func (f *fakeEnricher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePrices struct {
	mu    sync.Mutex
	price *string
	err   error
	calls int
}

func (f *fakePrices) LookupPrice(ctx context.Context, d openai.Descriptor) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.price, f.err
}

type fakeImages struct {
	mu      sync.Mutex
	err     error
	objects []string
}

func (f *fakeImages) Upload(ctx context.Context, object, contentType string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.objects = append(f.objects, object)
	return "https://storage.googleapis.com/bucket/" + object, nil
}

type serviceFixture struct {
	svc      Service
	conn     *gorm.DB
	user     models.User
	labels   *fakeLabels
	enricher *fakeEnricher
	prices   *fakePrices
	images   *fakeImages
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	f := &serviceFixture{
		conn:   conn,
		user:   dbtest.User(t, conn, "ana@example.com", "Ana"),
		labels: &fakeLabels{label: &openai.Label{Brand: "Ridge", Vintage: dbtest.Ptr(2018)}},
		enricher: &fakeEnricher{result: &openai.Enrichment{
			Varietal:         dbtest.Ptr("Zinfandel"),
			DrinkWindowStart: dbtest.Ptr(2022),
			DrinkWindowEnd:   dbtest.Ptr(2030),
			EstimatedRating:  dbtest.Ptr(92),
			RatingNotes:      dbtest.Ptr("Brambly fruit"),
			FoodPairings:     []string{"Barbecue", "Lamb"},
		}},
		prices: &fakePrices{price: dbtest.Ptr("$45")},
		images: &fakeImages{},
	}
	svc, err := NewService(ServiceParams{
		TxRunner:    client,
		Repo:        NewRepository(conn),
		Labels:      f.labels,
		Enricher:    f.enricher,
		Prices:      f.prices,
		Images:      f.images,
		ImagePrefix: "labels",
		AITimeout:   time.Second,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func testImage() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected %s error, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected %s, got %s (%v)", code, typed.Code(), err)
	}
}

func countWines(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(&models.Wine{}).Count(&n).Error; err != nil {
		t.Fatalf("count wines: %v", err)
	}
	return n
}

func TestScanCreatesEnrichedWine(t *testing.T) {
	f := newServiceFixture(t)

	res, err := f.svc.Scan(context.Background(), f.user.ID, testImage())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !res.Created {
		t.Fatal("expected a new wine")
	}
	w := res.Wine
	if w.Brand != "Ridge" || w.Vintage == nil || *w.Vintage != 2018 {
		t.Fatalf("unexpected identity %+v", w)
	}
	if w.Varietal == nil || *w.Varietal != "Zinfandel" {
		t.Fatalf("expected inferred varietal, got %v", w.Varietal)
	}
	if w.EstimatedRating == nil || *w.EstimatedRating != 92 {
		t.Fatalf("expected rating 92, got %v", w.EstimatedRating)
	}
	if w.FoodPairings.String() != "Barbecue, Lamb" {
		t.Fatalf("unexpected pairings %q", w.FoodPairings.String())
	}
	if w.MarketPrice == nil || *w.MarketPrice != "$45" {
		t.Fatalf("unexpected price %v", w.MarketPrice)
	}
	if w.ImageURL == nil || !strings.HasSuffix(*w.ImageURL, ".png") {
		t.Fatalf("expected uploaded png url, got %v", w.ImageURL)
	}
	if !strings.HasPrefix(f.images.objects[0], "labels/"+f.user.ID.String()+"/") {
		t.Fatalf("unexpected object name %q", f.images.objects[0])
	}
	if !res.NeedsBackLabel {
		t.Fatal("an inferred varietal plus missing region and designation should suggest a back label")
	}
}

func TestScanSameLabelReturnsExistingWine(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.svc.Scan(ctx, f.user.ID, testImage())
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := f.svc.Scan(ctx, f.user.ID, testImage())
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if second.Created {
		t.Fatal("rescan must not create a wine")
	}
	if second.Wine.ID != first.Wine.ID {
		t.Fatalf("expected same id %s, got %s", first.Wine.ID, second.Wine.ID)
	}
	if n := countWines(t, f.conn); n != 1 {
		t.Fatalf("expected one wine, got %d", n)
	}
	if f.enricher.callCount() != 1 {
		t.Fatalf("pairings present, enrichment should not rerun; got %d calls", f.enricher.callCount())
	}
}

func TestScanInferredVarietalDoesNotCollideWithLabelledWine(t *testing.T) {
	f := newServiceFixture(t)
	dbtest.IdentityIndex(t, f.conn)
	ctx := context.Background()
	labelled := dbtest.Wine(t, f.conn, f.user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2018))

	res, err := f.svc.Scan(ctx, f.user.ID, testImage())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !res.Created || res.Wine.ID == labelled.ID {
		t.Fatalf("a label without varietal must not reuse the labelled wine, got %+v", res)
	}
	if res.Wine.Varietal == nil || *res.Wine.Varietal != "Zinfandel" {
		t.Fatalf("expected inferred varietal, got %v", res.Wine.Varietal)
	}
	if n := countWines(t, f.conn); n != 2 {
		t.Fatalf("expected two wines, got %d", n)
	}

	again, err := f.svc.Scan(ctx, f.user.ID, testImage())
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if again.Created || again.Wine.ID != res.Wine.ID {
		t.Fatalf("rescan should return %s, got %+v", res.Wine.ID, again)
	}
}

func TestScanBackfillsMissingPairingsOnExistingWine(t *testing.T) {
	f := newServiceFixture(t)
	dbtest.Wine(t, f.conn, f.user.ID, "Ridge", nil, dbtest.Ptr(2018))

	res, err := f.svc.Scan(context.Background(), f.user.ID, testImage())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Created {
		t.Fatal("expected existing wine")
	}
	if res.Wine.FoodPairings.IsEmpty() {
		t.Fatal("expected pairings backfilled")
	}
	if res.Wine.Varietal != nil {
		t.Fatal("backfill must only touch pairings")
	}
}

func TestScanBackfillFailureReturnsWineUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	stored := dbtest.Wine(t, f.conn, f.user.ID, "Ridge", nil, dbtest.Ptr(2018))
	f.enricher.err = errors.New("upstream down")

	res, err := f.svc.Scan(context.Background(), f.user.ID, testImage())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Wine.ID != stored.ID || !res.Wine.FoodPairings.IsEmpty() {
		t.Fatalf("expected unchanged wine, got %+v", res.Wine)
	}
}

func TestScanEmptyImageIsValidationError(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Scan(context.Background(), f.user.ID, "data:image/jpeg;base64,")
	requireCode(t, err, pkgerrors.CodeValidation)
	if f.labels.calls != 0 {
		t.Fatal("label reader must not be called for an empty image")
	}
}

func TestScanLabelFailureCreatesNothing(t *testing.T) {
	f := newServiceFixture(t)
	f.labels.err = errors.New("vision unavailable")

	_, err := f.svc.Scan(context.Background(), f.user.ID, testImage())
	requireCode(t, err, pkgerrors.CodeDependency)
	if n := countWines(t, f.conn); n != 0 {
		t.Fatalf("expected no wine, got %d", n)
	}
}

func TestScanBlankBrandIsDependencyError(t *testing.T) {
	f := newServiceFixture(t)
	f.labels.label = &openai.Label{Brand: "  "}

	_, err := f.svc.Scan(context.Background(), f.user.ID, testImage())
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestScanEnrichmentFailureFailsNewWine(t *testing.T) {
	f := newServiceFixture(t)
	f.enricher.err = errors.New("model overloaded")

	_, err := f.svc.Scan(context.Background(), f.user.ID, testImage())
	requireCode(t, err, pkgerrors.CodeDependency)
	if n := countWines(t, f.conn); n != 0 {
		t.Fatalf("expected no wine, got %d", n)
	}
}

func TestScanEnrichmentTimeoutIsDependencyError(t *testing.T) {
	f := newServiceFixture(t)
	f.enricher.block = true
	f.svc.(*service).aiTimeout = 20 * time.Millisecond

	_, err := f.svc.Scan(context.Background(), f.user.ID, testImage())
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestScanDegradesPriceAndUploadFailures(t *testing.T) {
	f := newServiceFixture(t)
	f.prices.err = errors.New("search failed")
	f.prices.price = nil
	f.images.err = errors.New("bucket gone")

	res, err := f.svc.Scan(context.Background(), f.user.ID, testImage())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Wine.MarketPrice != nil {
		t.Fatalf("expected null price, got %v", *res.Wine.MarketPrice)
	}
	if res.Wine.ImageURL != nil {
		t.Fatalf("expected null image url, got %v", *res.Wine.ImageURL)
	}
}

func TestMergeScanFillsOnlyMissingFields(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	stored := models.Wine{
		ID:        uuid.New(),
		CreatedBy: f.user.ID,
		Brand:     "Ridge",
		Vintage:   dbtest.Ptr(2018),
		Region:    dbtest.Ptr("Sonoma"),
	}
	if err := f.conn.Create(&stored).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.labels.label = &openai.Label{
		Brand:       "Ridge Vineyards",
		Varietal:    dbtest.Ptr("Zinfandel"),
		Vintage:     dbtest.Ptr(2019),
		Region:      dbtest.Ptr("Dry Creek Valley"),
		Designation: dbtest.Ptr("Lytton Springs"),
	}

	res, err := f.svc.MergeScan(ctx, f.user.ID, stored.ID, testImage())
	if err != nil {
		t.Fatalf("merge scan: %v", err)
	}
	w := res.Wine
	if w.Brand != "Ridge" || *w.Vintage != 2018 || *w.Region != "Sonoma" {
		t.Fatalf("known fields were overwritten: %+v", w)
	}
	if w.Varietal == nil || *w.Varietal != "Zinfandel" {
		t.Fatalf("expected varietal from back label, got %v", w.Varietal)
	}
	if w.Designation == nil || *w.Designation != "Lytton Springs" {
		t.Fatalf("expected designation, got %v", w.Designation)
	}
	if w.DrinkWindowStart == nil || w.EstimatedRating == nil || w.MarketPrice == nil {
		t.Fatalf("expected full re-enrichment, got %+v", w)
	}
	if res.NeedsBackLabel {
		t.Fatal("merged wine is no longer sparse")
	}
	last := f.enricher.calls[len(f.enricher.calls)-1]
	if last.Designation == nil || *last.Designation != "Lytton Springs" {
		t.Fatal("enrichment should see the merged fields")
	}
}

func TestMergeScanEnrichmentFailureWritesNothing(t *testing.T) {
	f := newServiceFixture(t)
	stored := dbtest.Wine(t, f.conn, f.user.ID, "Ridge", nil, nil)
	f.labels.label = &openai.Label{Brand: "Ridge", Region: dbtest.Ptr("Sonoma")}
	f.enricher.err = errors.New("down")

	_, err := f.svc.MergeScan(context.Background(), f.user.ID, stored.ID, testImage())
	requireCode(t, err, pkgerrors.CodeDependency)

	var reloaded models.Wine
	if err := f.conn.First(&reloaded, "id = ?", stored.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Region != nil {
		t.Fatal("merge must not be written when enrichment fails")
	}
}

func TestMergeScanOtherOwnerIsNotFound(t *testing.T) {
	f := newServiceFixture(t)
	other := dbtest.User(t, f.conn, "ben@example.com", "Ben")
	stored := dbtest.Wine(t, f.conn, other.ID, "Ridge", nil, nil)

	_, err := f.svc.MergeScan(context.Background(), f.user.ID, stored.ID, testImage())
	requireCode(t, err, pkgerrors.CodeNotFound)
	if f.labels.calls != 0 {
		t.Fatal("label reader must not run for a wine the caller does not own")
	}
}

func TestUpdateWithoutRescoreCallsNoCollaborator(t *testing.T) {
	f := newServiceFixture(t)
	stored := dbtest.Wine(t, f.conn, f.user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2018))

	dto, err := f.svc.Update(context.Background(), f.user.ID, stored.ID, UpdateRequest{
		Region:   types.Some("Sonoma"),
		Varietal: types.Null[string](),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if dto.Region == nil || *dto.Region != "Sonoma" {
		t.Fatalf("expected region, got %v", dto.Region)
	}
	if dto.Varietal != nil {
		t.Fatal("explicit null should clear varietal")
	}
	if *dto.Vintage != 2018 {
		t.Fatal("absent fields must be left alone")
	}
	if f.enricher.callCount() != 0 || f.prices.calls != 0 {
		t.Fatal("no collaborator should be called without rescore")
	}
}

func TestUpdateRejectsBlankBrandAndEmptyPatch(t *testing.T) {
	f := newServiceFixture(t)
	stored := dbtest.Wine(t, f.conn, f.user.ID, "Ridge", nil, nil)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, f.user.ID, stored.ID, UpdateRequest{Brand: types.Some("   ")})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Update(ctx, f.user.ID, stored.ID, UpdateRequest{})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateRescorePreservesPairingsUnlessEmpty(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	withPairings := models.Wine{
		ID:           uuid.New(),
		CreatedBy:    f.user.ID,
		Brand:        "Ridge",
		Varietal:     dbtest.Ptr("Petite Sirah"),
		FoodPairings: dbtypes.CommaList{"Brisket"},
	}
	if err := f.conn.Create(&withPairings).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	dto, err := f.svc.Update(ctx, f.user.ID, withPairings.ID, UpdateRequest{Rescore: true})
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	if dto.FoodPairings.String() != "Brisket" {
		t.Fatalf("existing pairings must be preserved, got %q", dto.FoodPairings.String())
	}
	if *dto.Varietal != "Petite Sirah" {
		t.Fatal("varietal must only be backfilled when absent")
	}
	if dto.EstimatedRating == nil || *dto.EstimatedRating != 92 {
		t.Fatal("rescore should refresh the rating")
	}

	empty := dbtest.Wine(t, f.conn, f.user.ID, "Opus One", nil, nil)
	dto, err = f.svc.Update(ctx, f.user.ID, empty.ID, UpdateRequest{Rescore: true})
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	if dto.FoodPairings.String() != "Barbecue, Lamb" {
		t.Fatalf("empty pairings should be filled, got %q", dto.FoodPairings.String())
	}

	cleared := dbtest.Wine(t, f.conn, f.user.ID, "Caymus", nil, nil)
	dto, err = f.svc.Update(ctx, f.user.ID, cleared.ID, UpdateRequest{
		Rescore:      true,
		FoodPairings: types.Null[dbtypes.CommaList](),
	})
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	if !dto.FoodPairings.IsEmpty() {
		t.Fatal("pairings supplied in the request win over enrichment")
	}
}

func TestUpdateRescoreEnrichmentFailure(t *testing.T) {
	f := newServiceFixture(t)
	stored := dbtest.Wine(t, f.conn, f.user.ID, "Ridge", nil, nil)
	f.enricher.err = errors.New("down")

	_, err := f.svc.Update(context.Background(), f.user.ID, stored.ID, UpdateRequest{
		Region:  types.Some("Sonoma"),
		Rescore: true,
	})
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestUpdateIdentityCollisionIsConflict(t *testing.T) {
	f := newServiceFixture(t)
	dbtest.Wine(t, f.conn, f.user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2018))
	other := dbtest.Wine(t, f.conn, f.user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2019))

	_, err := f.svc.Update(context.Background(), f.user.ID, other.ID, UpdateRequest{Vintage: types.Some(2018)})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestGetAndDeleteAreOwnerScoped(t *testing.T) {
	f := newServiceFixture(t)
	other := dbtest.User(t, f.conn, "ben@example.com", "Ben")
	theirs := dbtest.Wine(t, f.conn, other.ID, "Ridge", nil, nil)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, f.user.ID, theirs.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	err = f.svc.Delete(ctx, f.user.ID, theirs.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	mine := dbtest.Wine(t, f.conn, f.user.ID, "Ridge", nil, nil)
	if err := f.svc.Delete(ctx, f.user.ID, mine.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = f.svc.Delete(ctx, f.user.ID, mine.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestDecodeImage(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pngHeader)

	img, err := decodeImage(raw)
	if err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	if img.mimeType != "image/png" {
		t.Fatalf("expected sniffed png, got %q", img.mimeType)
	}

	img, err = decodeImage("data:image/webp;base64," + raw)
	if err != nil {
		t.Fatalf("decode data url: %v", err)
	}
	if img.mimeType != "image/webp" {
		t.Fatalf("expected declared type, got %q", img.mimeType)
	}

	if _, err := decodeImage("not base64!!"); err == nil {
		t.Fatal("expected invalid base64 error")
	}
	if _, err := decodeImage("   "); err == nil {
		t.Fatal("expected empty image error")
	}
}

func TestIsSparse(t *testing.T) {
	w := &models.Wine{Brand: "Ridge", Vintage: dbtest.Ptr(2018)}
	if !IsSparse(w) {
		t.Fatal("three unknown fields should be sparse")
	}
	w.Region = dbtest.Ptr("Sonoma")
	if IsSparse(w) {
		t.Fatal("two unknown fields should not be sparse")
	}
}
