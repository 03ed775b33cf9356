// Package cli provides output helpers for the papergraph CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// Answer pairs a question with its generated answer.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// WriteAnswer writes a question/answer pair to w in the given format.
func WriteAnswer(w io.Writer, a Answer, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	default:
		fmt.Fprintf(w, "\n%s\n", a.Answer)
		return nil
	}
}

// MetadataValues pairs a metadata field with its distinct values.
type MetadataValues struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// WriteMetadata writes a metadata lookup result to w in the given format.
func WriteMetadata(w io.Writer, m MetadataValues, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	default:
		if len(m.Values) == 0 {
			fmt.Fprintf(w, "%s: (sin valores)\n", m.Field)
			return nil
		}
		fmt.Fprintf(w, "%s: %s\n", m.Field, strings.Join(m.Values, ", "))
		return nil
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
