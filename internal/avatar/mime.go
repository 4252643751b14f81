package avatar

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MimeType struct {
	ContentType string
}

func (mt MimeType) IsImage() bool {
	return strings.HasPrefix(mt.ContentType, "image/")
}

func (mt MimeType) IsWebP() bool {
	return strings.HasPrefix(mt.ContentType, "image/webp")
}

// IsRaster reports whether the content is a format we can decode.
func (mt MimeType) IsRaster() bool {
	for _, t := range []string{"image/jpeg", "image/png", "image/webp"} {
		if strings.HasPrefix(mt.ContentType, t) {
			return true
		}
	}
	return false
}

func DetectMimeType(data []byte) MimeType {
	return MimeType{mimetype.Detect(data).String()}
}
