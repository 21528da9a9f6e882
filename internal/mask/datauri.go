package mask

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"imagestudio/internal/domain"
)

const pngDataURIPrefix = "data:image/png;base64,"

// EncodeDataURI renders an image as a base64 PNG data URI, the format the
// prediction API accepts for image and mask inputs.
func EncodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode mask png: %w", err)
	}
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURI parses a PNG data URI (or bare base64 PNG) back into an
// image.
func DecodeDataURI(s string) (image.Image, error) {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64 image: %v", domain.ErrInvalidInput, err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode png: %v", domain.ErrInvalidInput, err)
	}
	return img, nil
}

// NormalizeDataURI ensures an image payload carries a data-URI prefix.
// Clients may send bare base64; the prediction API wants the full URI.
func NormalizeDataURI(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "data:") {
		return s
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return pngDataURIPrefix + s
}
