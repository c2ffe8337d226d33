// Package media validates uploaded images and converts them to and from
// inline data URIs ("data:<mime>;base64,<payload>").
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the largest image accepted for upload.
const MaxUploadBytes = 10 * 1024 * 1024

// AllowedUploadTypes are the image types accepted from users.
var AllowedUploadTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// ModelImageTypes are the image types the model accepts inline.
var ModelImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/heic", "image/heif"}

// ErrValidation marks client-side input rejections.
var ErrValidation = errors.New("validation failed")

// ValidationError describes a rejected input before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DataURI is a decoded inline payload.
type DataURI struct {
	MIMEType string
	Data     []byte
}

// String encodes the payload back into data URI form.
func (d DataURI) String() string {
	return EncodeDataURI(d.MIMEType, d.Data)
}

// EncodeDataURI builds "data:<mime>;base64,<payload>".
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 data URI.
func ParseDataURI(s string) (DataURI, error) {
	const marker = ";base64,"
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return DataURI{}, Invalid("image", "invalid data URI prefix")
	}
	idx := strings.Index(s, marker)
	if idx < 0 {
		return DataURI{}, Invalid("image", "data URI missing base64 marker")
	}

	meta := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s[:idx], "data:")))
	// drop parameters such as ";name=photo.jpg"
	if semi := strings.Index(meta, ";"); semi >= 0 {
		meta = meta[:semi]
	}
	if meta == "" {
		return DataURI{}, Invalid("image", "data URI missing MIME type")
	}

	raw, err := base64.StdEncoding.DecodeString(s[idx+len(marker):])
	if err != nil {
		return DataURI{}, Invalid("image", fmt.Sprintf("decode base64: %v", err))
	}
	if len(raw) == 0 {
		return DataURI{}, Invalid("image", "empty image payload")
	}
	return DataURI{MIMEType: meta, Data: raw}, nil
}

// ParseImageDataURI decodes a data URI and requires a MIME type the model accepts.
func ParseImageDataURI(s string) (DataURI, error) {
	d, err := ParseDataURI(s)
	if err != nil {
		return DataURI{}, err
	}
	if !contains(ModelImageTypes, d.MIMEType) {
		return DataURI{}, Invalid("image", fmt.Sprintf("unsupported image type %q", d.MIMEType))
	}
	return d, nil
}

// ValidateUpload applies the upload form's size and type checks.
func ValidateUpload(d DataURI) error {
	if len(d.Data) > MaxUploadBytes {
		return Invalid("image", "file too large, please upload an image smaller than 10MB")
	}
	if !contains(AllowedUploadTypes, d.MIMEType) {
		return Invalid("image", "invalid file type, please upload a JPG, PNG, WEBP, or GIF image")
	}
	return nil
}

// LoadImageFile reads an image from disk, sniffs its type and validates it for upload.
func LoadImageFile(path string) (DataURI, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DataURI{}, "", fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return DataURI{}, "", Invalid("image", "path is a directory")
	}
	if info.Size() > MaxUploadBytes {
		return DataURI{}, "", Invalid("image", "file too large, please upload an image smaller than 10MB")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DataURI{}, "", fmt.Errorf("read image: %w", err)
	}
	d := DataURI{MIMEType: DetectType(data), Data: data}
	if err := ValidateUpload(d); err != nil {
		return DataURI{}, "", err
	}
	return d, filepath.Base(path), nil
}

// DetectType sniffs the MIME type of an image payload.
func DetectType(data []byte) string {
	ct := http.DetectContentType(data)
	if semi := strings.Index(ct, ";"); semi >= 0 {
		ct = ct[:semi]
	}
	return strings.TrimSpace(ct)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
