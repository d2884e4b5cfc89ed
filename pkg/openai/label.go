package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
)

const labelSystemPrompt = `You are a wine label reader. Extract ONLY the information that is explicitly visible on the label image.
Return ONLY valid JSON with these fields:
- brand: string (winery/producer name, must be printed on the label)
- varietal: string or null (grape variety, e.g. "Cabernet Sauvignon", ONLY if printed on the label)
- vintage: number or null (year, ONLY if printed on the label)
- region: string or null (wine region/appellation, ONLY if printed on the label)
- designation: string or null (e.g. "Reserve", "Grand Cru", "Estate", ONLY if printed on the label)

Rules:
- Do NOT guess, infer, or use your knowledge of wines to fill in fields.
- If a field is not clearly visible on the label, set it to null.
- Do NOT recognize a wine and fill in details from memory.
- When in doubt, return null.`

// ReadLabel extracts the printed fields from a label photo. A response with no
// brand is a dependency failure.
func (c *Client) ReadLabel(ctx context.Context, image []byte, mimeType string) (*Label, error) {
	if len(image) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "image/jpeg"
	}
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "openai client not configured")
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	req := jsonObjectRequest(c.visionModel, labelSystemPrompt, []contentPart{
		{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		{Type: "text", Text: "Extract the wine details from this label."},
	})

	content, err := c.complete(ctx, "read_label", req)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Brand       *string  `json:"brand"`
		Varietal    *string  `json:"varietal"`
		Vintage     looseInt `json:"vintage"`
		Region      *string  `json:"region"`
		Designation *string  `json:"designation"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse label response")
	}

	brand := cleanString(raw.Brand)
	if brand == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "could not identify wine from label")
	}
	return &Label{
		Brand:       *brand,
		Varietal:    cleanString(raw.Varietal),
		Vintage:     raw.Vintage.Value,
		Region:      cleanString(raw.Region),
		Designation: cleanString(raw.Designation),
	}, nil
}
