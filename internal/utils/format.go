package utils

import "fmt"

// Pluralize renders n with unit, adding an s when n is not 1
func Pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
