package openai

import (
	"context"
	"encoding/json"
	"regexp"
)

const priceSystemPrompt = `You are a wine pricing expert. Given a wine, search for its current average US retail price.
Return ONLY valid JSON with this field:
- marketPrice: string (e.g. "$45" or "$30-50"), the typical US retail price. Use null if no pricing information can be found.`

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// LookupPrice asks a search-capable model for the retail price of d. Every
// failure yields a nil price and a nil error; pricing never blocks a scan.
func (c *Client) LookupPrice(ctx context.Context, d Descriptor) (*string, error) {
	if c == nil {
		return nil, nil
	}
	req := chatRequest{
		Model: c.priceModel,
		Messages: []chatMessage{
			{Role: "system", Content: priceSystemPrompt},
			{Role: "user", Content: "What is the average US retail price for: " + describe(d, false)},
		},
		WebSearchOptions: &struct{}{},
	}

	content, err := c.complete(ctx, "lookup_price", req)
	if err != nil {
		return nil, nil
	}

	match := jsonObjectPattern.FindString(content)
	if match == "" {
		return nil, nil
	}
	var parsed struct {
		MarketPrice *string `json:"marketPrice"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil, nil
	}
	return cleanString(parsed.MarketPrice), nil
}
