package wines

import (
	"encoding/base64"
	"net/http"
	"path"
	"strings"

	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/google/uuid"
)

const defaultImageType = "image/jpeg"

type decodedImage struct {
	data     []byte
	mimeType string
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/gif":  ".gif",
}

// decodeImage accepts raw base64 or a data URL such as
// "data:image/png;base64,....".
func decodeImage(raw string) (decodedImage, error) {
	payload := strings.TrimSpace(raw)
	declared := ""
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return decodedImage{}, pkgerrors.New(pkgerrors.CodeValidation, "image must be base64 encoded")
		}
		header := payload[len("data:"):comma]
		declared = strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
		payload = payload[comma+1:]
	}
	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return decodedImage{}, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return decodedImage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image must be base64 encoded")
	}
	if len(data) == 0 {
		return decodedImage{}, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}

	mimeType := declared
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = defaultImageType
	}
	return decodedImage{data: data, mimeType: mimeType}, nil
}

func labelObjectName(prefix string, userID uuid.UUID, mimeType string) string {
	ext, ok := imageExtensions[mimeType]
	if !ok {
		ext = ".jpg"
	}
	return path.Join(strings.Trim(prefix, "/"), userID.String(), uuid.NewString()+ext)
}
