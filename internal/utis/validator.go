package utils

import (
	"fmt"
	"strings"
)

// MaxUploadBytes is the largest file accepted for upload (100 MiB).
const MaxUploadBytes = int64(100 * 1024 * 1024)

// ValidateMediaFile checks a file against the rules for kind ("image" or "video")
// before any bytes are sent anywhere.
func ValidateMediaFile(kind, contentType string, size int64) error {
	prefix, ok := kindPrefixes[kind]
	if !ok {
		return fmt.Errorf("%w: unsupported media kind %q", ErrInvalidFile, kind)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), prefix) {
		return fmt.Errorf("%w: Please upload a valid %s file", ErrInvalidFile, kind)
	}
	if size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("%w: File size must be less than 100 MB", ErrInvalidFile)
	}
	return nil
}

// KindFromContentType maps a MIME type onto a media kind, or "" when it is neither.
func KindFromContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	for kind, prefix := range kindPrefixes {
		if strings.HasPrefix(ct, prefix) {
			return kind
		}
	}
	return ""
}

var kindPrefixes = map[string]string{
	"image": "image/",
	"video": "video/",
}
