package telemetry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/GriffinCanCode/casdk/internal/shared/types"
)

// Entry is one parsed snapshot line.
type Entry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Raw  string `json:"raw"`
}

// ParseStats summarises a snapshot parse.
type ParseStats struct {
	Lines   int `json:"lines"`
	Entries int `json:"entries"`
	Binary  int `json:"binary"`
	Skipped int `json:"skipped"`
}

var separators = regexp.MustCompile(`[(),:]`)

// ParseLine parses `<name> (<type>, <size>): <value>[, <fraction>]`.
// Lines with fewer than five tokens, an empty name or an empty type fail
// with ErrParse; binary entries fail with ErrBinaryEntry.
func ParseLine(line string) (Entry, error) {
	parts := separators.Split(line, -1)
	if len(parts) < 5 {
		return Entry{}, fmt.Errorf("%w: %d tokens in %q", types.ErrParse, len(parts), line)
	}

	typ := strings.TrimSpace(parts[1])
	name := strings.TrimSpace(parts[0])
	if typ == "" || name == "" {
		return Entry{}, fmt.Errorf("%w: missing name or type in %q", types.ErrParse, line)
	}

	raw := strings.TrimSpace(parts[4])
	switch strings.ToLower(typ) {
	case "binary":
		return Entry{}, fmt.Errorf("%w: %s", types.ErrBinaryEntry, name)
	case "double":
		if len(parts) > 5 {
			if frac := strings.TrimSpace(parts[5]); frac != "" {
				raw = raw + "." + frac
			}
		}
	}

	return Entry{Name: name, Type: typ, Raw: raw}, nil
}

// ParseSnapshot splits text into lines, applies filter when non-nil and
// parses every line. Malformed and binary lines are counted and skipped.
// A final line terminator does not start another line.
func ParseSnapshot(text string, filter Filter) ([]Entry, ParseStats) {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, ParseStats{}
	}
	lines := strings.Split(text, "\n")
	if filter != nil {
		lines = filter(lines)
	}

	stats := ParseStats{Lines: len(lines)}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e, err := ParseLine(strings.TrimRight(line, "\r"))
		switch {
		case err == nil:
			entries = append(entries, e)
		case errors.Is(err, types.ErrBinaryEntry):
			stats.Binary++
		default:
			stats.Skipped++
		}
	}
	stats.Entries = len(entries)
	return entries, stats
}
