package main

import "testing"

func TestParseSizeValid(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1k", 1000},
		{"1K", 1000},
		{"1kb", 1000},
		{"1m", 1000000},
		{"1g", 1000000000},
		{"1234", 1234},
		{"0", 0},
		{"1KiB", 1024},
		{"1MiB", 1048576},
		{"1GiB", 1073741824},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSize(tt.input)
			if err != nil {
				t.Fatalf("parseSize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSizeInvalid(t *testing.T) {
	tests := []string{"invalid", "abc", "1.5.5", "--100"}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := parseSize(input); err == nil {
				t.Errorf("parseSize(%q) should return error", input)
			}
		})
	}
}

func TestParseSizeEmptyStringReturnsError(t *testing.T) {
	if _, err := parseSize(""); err == nil {
		t.Error("parseSize(\"\") should return error, got nil")
	}
}

func TestValidateIgnorePatternsValid(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
	}{
		{"single glob", []string{"*.txt"}},
		{"anchored", []string{"/vendor/"}},
		{"negation", []string{"*.log", "!keep.log"}},
		{"empty slice", []string{}},
		{"nil slice", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateIgnorePatterns(tt.patterns); err != nil {
				t.Errorf("validateIgnorePatterns(%v) unexpected error: %v", tt.patterns, err)
			}
		})
	}
}
