package captcha

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// imageBody returns the bare base64 payload of an image challenge. Data
// URLs as produced by canvas.toDataURL are accepted. Anything that does not
// decode to an image is rejected before it reaches a paid provider.
func imageBody(provider, b64 string) (string, error) {
	body := b64
	if strings.HasPrefix(body, "data:") {
		if i := strings.Index(body, ","); i >= 0 {
			body = body[i+1:]
		}
	}
	body = strings.TrimSpace(body)

	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil || len(raw) == 0 {
		return "", &ProviderError{Provider: provider, Code: "ERROR_IMAGE_ENCODING", Description: "image is not valid base64"}
	}
	if mt := mimetype.Detect(raw); !strings.HasPrefix(mt.String(), "image/") {
		return "", &ProviderError{Provider: provider, Code: "ERROR_WRONG_FILE_EXTENSION", Description: mt.String()}
	}
	return body, nil
}
