package utils

import "strconv"

// FirstNonEmpty returns the first value that is not the empty string.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FormatFloat renders an optional reading, using dash for absent values.
func FormatFloat(v *float64, precision int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}
