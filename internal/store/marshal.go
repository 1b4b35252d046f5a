package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/synthase/internal/ir"
)

// marshalClassification converts a classification path to canonical JSON
// TEXT for storage. A nil path is stored as [].
func marshalClassification(path []string) (string, error) {
	data, err := ir.MarshalCanonical(ir.Strings(path))
	if err != nil {
		return "", fmt.Errorf("marshal classification: %w", err)
	}
	return string(data), nil
}

// unmarshalClassification parses a stored path. The result is never nil.
func unmarshalClassification(data string) ([]string, error) {
	path := []string{}
	if data == "" || data == "[]" {
		return path, nil
	}
	if err := json.Unmarshal([]byte(data), &path); err != nil {
		return nil, fmt.Errorf("unmarshal classification: %w", err)
	}
	return path, nil
}

// label is the most specific classification, or "" when unclassified.
func label(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
