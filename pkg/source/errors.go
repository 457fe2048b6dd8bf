package source

import "errors"

var (
	// ErrInvalidSource is returned when the source is neither an HTTPS URL
	// nor an existing absolute directory path
	ErrInvalidSource = errors.New("source must be an HTTPS URL or an absolute server path")

	// ErrAcquisitionFailed is returned when cloning or copying the source fails
	ErrAcquisitionFailed = errors.New("failed to acquire template source")
)
