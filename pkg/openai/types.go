package openai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Descriptor identifies a wine for enrichment and pricing prompts.
type Descriptor struct {
	Brand       string
	Varietal    *string
	Vintage     *int
	Region      *string
	Designation *string
}

// Label holds only what was printed on the photographed label.
type Label struct {
	Brand       string
	Varietal    *string
	Vintage     *int
	Region      *string
	Designation *string
}

// Enrichment is the model's estimate for a wine.
type Enrichment struct {
	Varietal         *string
	DrinkWindowStart *int
	DrinkWindowEnd   *int
	EstimatedRating  *int
	RatingNotes      *string
	FoodPairings     []string
}

// looseInt accepts a JSON number, a numeric string, or null.
type looseInt struct {
	Value *int
}

func (l *looseInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		l.Value = nil
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		num = json.Number(strings.TrimSpace(s))
	}
	if num == "" {
		l.Value = nil
		return nil
	}
	f, err := strconv.ParseFloat(num.String(), 64)
	if err != nil {
		// Non-numeric strings such as "NV" mean the field is absent.
		l.Value = nil
		return nil
	}
	v := int(f + 0.5)
	if f < 0 {
		v = int(f - 0.5)
	}
	l.Value = &v
	return nil
}

func cleanString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return nil
	}
	return &trimmed
}

func splitPairings(s *string) []string {
	cleaned := cleanString(s)
	if cleaned == nil {
		return nil
	}
	parts := strings.Split(*cleaned, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
