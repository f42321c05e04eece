package parsers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rileyhilliard/tbwatch/internal/errors"
)

// Series is one scalar tag's history. The three slices are parallel.
type Series struct {
	Steps     []int64   `json:"steps"`
	Values    []float64 `json:"values"`
	WallTimes []float64 `json:"wall_times"`
}

// ReportedError is the helper's own {"error": "..."} payload.
type ReportedError struct {
	Message string
}

func (e *ReportedError) Error() string {
	return "helper reported: " + e.Message
}

// ParseScalars decodes the helper's stdout: a JSON object mapping tag to
// Series, or {"error": "..."} which comes back as *ReportedError.
func ParseScalars(stdout string) (map[string]Series, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &raw); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrParse, "helper output isn't a JSON object", "")
	}

	if msg, ok := raw["error"]; ok {
		var text string
		if err := json.Unmarshal(msg, &text); err != nil {
			text = string(msg)
		}
		return nil, &ReportedError{Message: text}
	}

	out := make(map[string]Series, len(raw))
	for tag, body := range raw {
		var s Series
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrParse, fmt.Sprintf("tag %q isn't a series", tag), "")
		}
		if len(s.Steps) != len(s.Values) || len(s.Steps) != len(s.WallTimes) {
			return nil, errors.New(errors.ErrParse,
				fmt.Sprintf("tag %q has %d steps, %d values, %d wall times", tag, len(s.Steps), len(s.Values), len(s.WallTimes)), "")
		}
		out[tag] = s
	}
	return out, nil
}

// CopySeries returns a deep copy so callers can't alias stored slices.
// Empty or missing slices come back empty, never nil, so they encode as [].
func CopySeries(s Series) Series {
	return Series{
		Steps:     append(make([]int64, 0, len(s.Steps)), s.Steps...),
		Values:    append(make([]float64, 0, len(s.Values)), s.Values...),
		WallTimes: append(make([]float64, 0, len(s.WallTimes)), s.WallTimes...),
	}
}
