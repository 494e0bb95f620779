package config

import "errors"

var (
	// ErrInvalidLimit is returned when limit is not greater than 0
	ErrInvalidLimit = errors.New("limit must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("timeout must be greater than 0")
	// ErrInvalidRetries is returned when retries is negative
	ErrInvalidRetries = errors.New("retries cannot be negative")
	// ErrInvalidDelay is returned when delay is negative
	ErrInvalidDelay = errors.New("delay cannot be negative")
	// ErrEmptyOutputPath is returned when output path is empty
	ErrEmptyOutputPath = errors.New("out cannot be empty")
	// ErrOutputIsTemplate is returned when the output would overwrite the template
	ErrOutputIsTemplate = errors.New("out must differ from template")
	// ErrUnsupportedLang is returned for languages other than en and ru
	ErrUnsupportedLang = errors.New("lang must be en or ru")
	// ErrInvalidHeader is returned for headers not in "Name: Value" form
	ErrInvalidHeader = errors.New("header must be in 'Name: Value' format")
)
