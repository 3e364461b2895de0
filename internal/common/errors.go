package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// Review errors
	ErrReviewNotFound = errors.New("review not found")

	// Store errors
	ErrStoreNotFound       = errors.New("store not found")
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// Collaborator errors
	ErrCrawlerLoginFailed = errors.New("crawler login failed")
	ErrEmptyReply         = errors.New("empty reply text")

	// Vault errors
	ErrDecryptFailed = errors.New("credential decrypt failed")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)
