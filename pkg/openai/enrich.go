package openai

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
)

const enrichSystemPrompt = `You are a wine expert. Given a wine, estimate its optimal drinking window and quality rating.
Return ONLY valid JSON with these fields:
- drinkWindowStart: number (year to start drinking)
- drinkWindowEnd: number (year by which it should be consumed)
- estimatedRating: number (0-100 scale, critic-style rating estimate)
- ratingNotes: string (1-2 sentences explaining the rating and drinking window)
- foodPairings: string or null (3-5 specific, comma-separated food pairings matched to the varietal, region, body, and tannin structure)
- varietal: string or null (if no varietal was provided, infer it from the producer and region; if one was provided, return it unchanged; null if unknown)

Base estimates on typical aging curves for the varietal, region, and producer quality.
Designated bottlings (Reserve, Grand Cru) typically score higher than standard bottlings from the same producer.
If the vintage is unknown, assume a recent vintage.`

// Enrich estimates drink window, rating, pairings, and a varietal for d.
func (c *Client) Enrich(ctx context.Context, d Descriptor) (*Enrichment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "openai client not configured")
	}
	req := jsonObjectRequest(c.enrichModel, enrichSystemPrompt,
		"Estimate the drinking window and rating for: "+describe(d, true))

	content, err := c.complete(ctx, "enrich", req)
	if err != nil {
		return nil, err
	}

	var raw struct {
		DrinkWindowStart looseInt `json:"drinkWindowStart"`
		DrinkWindowEnd   looseInt `json:"drinkWindowEnd"`
		EstimatedRating  looseInt `json:"estimatedRating"`
		RatingNotes      *string  `json:"ratingNotes"`
		FoodPairings     *string  `json:"foodPairings"`
		Varietal         *string  `json:"varietal"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse enrichment response")
	}

	rating := raw.EstimatedRating.Value
	if rating != nil && (*rating < 0 || *rating > 100) {
		rating = nil
	}
	return &Enrichment{
		Varietal:         cleanString(raw.Varietal),
		DrinkWindowStart: raw.DrinkWindowStart.Value,
		DrinkWindowEnd:   raw.DrinkWindowEnd.Value,
		EstimatedRating:  rating,
		RatingNotes:      cleanString(raw.RatingNotes),
		FoodPairings:     splitPairings(raw.FoodPairings),
	}, nil
}
