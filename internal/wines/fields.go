package wines

import (
	"strings"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/cellarbook-backend/pkg/db/types"
	"github.com/angelmondragon/cellarbook-backend/pkg/openai"
	"github.com/google/uuid"
)

// sparseThreshold is how many of the descriptive label fields may be missing
// before a back-label pass is suggested.
const sparseThreshold = 3

// IsSparse reports whether at least three of varietal, vintage, region and
// designation were not read from a label. An inferred varietal counts as
// missing.
func IsSparse(w *models.Wine) bool {
	missing := 0
	if w.Varietal == nil || w.VarietalInferred {
		missing++
	}
	if w.Vintage == nil {
		missing++
	}
	if w.Region == nil {
		missing++
	}
	if w.Designation == nil {
		missing++
	}
	return missing >= sparseThreshold
}

func wineFromLabel(userID uuid.UUID, label *openai.Label) *models.Wine {
	return &models.Wine{
		ID:          uuid.New(),
		CreatedBy:   userID,
		Brand:       strings.TrimSpace(label.Brand),
		Varietal:    trimmed(label.Varietal),
		Vintage:     label.Vintage,
		Region:      trimmed(label.Region),
		Designation: trimmed(label.Designation),
	}
}

func descriptorFor(w *models.Wine) openai.Descriptor {
	return openai.Descriptor{
		Brand:       w.Brand,
		Varietal:    w.Varietal,
		Vintage:     w.Vintage,
		Region:      w.Region,
		Designation: w.Designation,
	}
}

// mergeLabel fills fields that are still unknown from a second label read.
// Known values are never overwritten.
func mergeLabel(w *models.Wine, label *openai.Label) {
	if w.Varietal == nil {
		if v := trimmed(label.Varietal); v != nil {
			w.Varietal = v
			w.VarietalInferred = false
		}
	}
	if w.Vintage == nil {
		w.Vintage = label.Vintage
	}
	if w.Region == nil {
		w.Region = trimmed(label.Region)
	}
	if w.Designation == nil {
		w.Designation = trimmed(label.Designation)
	}
}

// applyEnrichment overwrites the estimate fields and backfills the varietal.
// Pairings are only backfilled when backfillPairings is set and none exist.
func applyEnrichment(w *models.Wine, e *openai.Enrichment, backfillPairings bool) {
	if e == nil {
		return
	}
	if w.Varietal == nil {
		if v := trimmed(e.Varietal); v != nil {
			w.Varietal = v
			w.VarietalInferred = true
		}
	}
	if e.DrinkWindowStart != nil {
		w.DrinkWindowStart = e.DrinkWindowStart
	}
	if e.DrinkWindowEnd != nil {
		w.DrinkWindowEnd = e.DrinkWindowEnd
	}
	if e.EstimatedRating != nil {
		w.EstimatedRating = e.EstimatedRating
	}
	if e.RatingNotes != nil {
		w.RatingNotes = e.RatingNotes
	}
	if backfillPairings && w.FoodPairings.IsEmpty() && len(e.FoodPairings) > 0 {
		w.FoodPairings = dbtypes.CommaList(e.FoodPairings)
	}
}

func applyUpdate(w *models.Wine, req UpdateRequest) {
	if req.Brand.Set && req.Brand.Value != nil {
		w.Brand = strings.TrimSpace(*req.Brand.Value)
	}
	if req.Varietal.Set {
		w.Varietal = trimmed(req.Varietal.Value)
		w.VarietalInferred = false
	}
	if req.Vintage.Set {
		w.Vintage = req.Vintage.Value
	}
	if req.Region.Set {
		w.Region = trimmed(req.Region.Value)
	}
	if req.Designation.Set {
		w.Designation = trimmed(req.Designation.Value)
	}
	if req.FoodPairings.Set {
		if req.FoodPairings.Value == nil {
			w.FoodPairings = nil
		} else {
			w.FoodPairings = *req.FoodPairings.Value
		}
	}
	if req.MarketPrice.Set {
		w.MarketPrice = trimmed(req.MarketPrice.Value)
	}
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
