// Package uid generates identifiers: numeric snowflake IDs for rows and
// UUIDv7 strings for correlation, token and event IDs.
package uid

// NumberID generates unique, roughly time-ordered int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}
