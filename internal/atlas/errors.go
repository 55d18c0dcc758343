// Package atlas re-keys atlas manifests from image names to integer ids and
// classifies the faults that can occur while serving them.
package atlas

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDataNotFound is returned when the manifest file does not exist.
	ErrDataNotFound = errors.New("atlas data not found")
	// ErrInvalidFormat is returned when the manifest does not parse into an atlas document.
	ErrInvalidFormat = errors.New("invalid atlas data")
	// ErrIndexOutOfRange is returned for an atlas index with no descriptor.
	ErrIndexOutOfRange = errors.New("atlas index out of range")
	// ErrImageFileMissing is returned when a descriptor's page file is not on disk.
	ErrImageFileMissing = errors.New("atlas image not found")
)

// IntegrityError reports a uv table entry whose image name has no metadata.
type IntegrityError struct {
	Atlas int
	Name  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("atlas %d: uv entry %q has no metadata", e.Atlas, e.Name)
}

// StatusCode maps an error from this package to the HTTP status it is served with.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrDataNotFound),
		errors.Is(err, ErrIndexOutOfRange),
		errors.Is(err, ErrImageFileMissing):
		return http.StatusNotFound
	default:
		// invalid format, integrity faults and read errors are server-side
		return http.StatusInternalServerError
	}
}
