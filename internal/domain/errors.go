package domain

import "errors"

var (
	ErrInvalidDescriptor = errors.New("invalid collection descriptor")
	ErrAuthFailed        = errors.New("nexus mods authentication failed")
	ErrPremiumRequired   = errors.New("premium membership required for this download")
	ErrDownloadFailed    = errors.New("download failed")
	ErrExtractionFailed  = errors.New("archive extraction failed")
	ErrFomodXMLInvalid   = errors.New("invalid fomod module config")
	ErrSortFailed        = errors.New("sort failed")
	ErrDependencyLoop    = errors.New("circular mod dependency detected")
	ErrNotFound          = errors.New("not found")
)
