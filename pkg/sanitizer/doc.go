// Package sanitizer normalizes free-text turf data before validation and
// storage.
//
// All functions are idempotent: applying them twice yields the same result.
// Invalid input degrades to an empty string or slice rather than an error.
//
// Normalization includes:
//   - Names and addresses: collapse whitespace, trim
//   - Cities: lowercase, anything that is not a letter becomes "_" ("New Delhi" becomes "new_delhi")
//   - Labels (category, amenities): lowercase, letters and digits kept ("5-a-side" becomes "5_a_side")
//   - Slices: normalized, empty values and duplicates dropped, order kept
package sanitizer
