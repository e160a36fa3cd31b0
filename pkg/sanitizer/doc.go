// Package sanitizer normalizes user supplied text before validation and storage.
//
// All functions are idempotent. Invalid input is returned cleaned rather than
// rejected; rejecting is the validator's job.
//
// Normalization includes:
//   - Free text (titles, names, locations): trim, collapse whitespace, drop control characters
//   - Identifiers (account ids, profile references): trim, no inner whitespace
//   - Slices: remove duplicates and empty values after normalization
package sanitizer
