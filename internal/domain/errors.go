package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("fewer than two marketplace references")
	ErrDuplicateSource  = errors.New("source reference already tracked")
	ErrInactive         = errors.New("product is inactive")
	ErrRateLimited      = errors.New("rate limited")
	ErrExtractTimeout   = errors.New("extraction timed out")
	ErrUnavailable      = errors.New("extraction service unavailable")
	ErrMalformedSchema  = errors.New("malformed extraction schema")
	ErrContextDone      = errors.New("context cancelled")
)
