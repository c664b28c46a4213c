package handlers

import (
	"fmt"
	"strconv"
	"strings"
)

// parseIDList parses a comma-separated list of integer identifiers.
// An empty input yields a nil slice; any non-integer token is an error.
func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	tokens := strings.Split(raw, ",")
	ids := make([]int64, 0, len(tokens))
	for _, token := range tokens {
		id, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid identifier %q", strings.TrimSpace(token))
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// parseBoolFlag interprets query-parameter truthiness: any value other
// than empty, "0" or "false" counts as set.
func parseBoolFlag(raw string) bool {
	value := strings.TrimSpace(raw)
	if value == "" || value == "0" {
		return false
	}
	return !strings.EqualFold(value, "false")
}
