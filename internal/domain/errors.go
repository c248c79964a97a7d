package domain

import "errors"

// Error categories for the ingestion and extraction pipeline. Unit-level
// failures (one entry, one page, one OCR call) degrade to empty or marked
// results and are never returned; these sentinels classify the failures that
// do surface to callers.
var (
	// ErrConfiguration marks invalid filter or sort input, rejected before any I/O.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrFetch marks a network, timeout, or non-success status failure.
	ErrFetch = errors.New("fetch failed")

	// ErrParse marks markup that could not be decoded into a record.
	ErrParse = errors.New("parse failed")

	// ErrExternalService marks a failure of the OCR or LLM service after retries.
	ErrExternalService = errors.New("external service failed")

	// ErrNotFound marks a missing row in storage.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists marks a uniqueness conflict in storage.
	ErrAlreadyExists = errors.New("already exists")
)
