// Package utils provides shared utility functions.
//
// These utilities are used across multiple packages and include:
//   - Relative time and plural formatting
//   - Reading command input from files or stdin
package utils
