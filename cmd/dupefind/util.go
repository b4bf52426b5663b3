package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	ignore "github.com/sabhiram/go-gitignore"
)

// parseSize parses a human-readable size string into bytes. Supports
// formats like "100", "1K", "8KiB", "64MiB".
func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// validateIgnorePatterns checks that patterns compile as gitignore syntax,
// the same library the Walker matches against, so a typo is reported at
// flag-parsing time instead of silently matching nothing mid-scan.
func validateIgnorePatterns(patterns []string) error {
	if len(patterns) == 0 {
		return nil
	}
	if _, err := ignore.CompileIgnoreLines(patterns...); err != nil {
		return fmt.Errorf("invalid ignore pattern: %w", err)
	}
	return nil
}
