package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spigell/resumatch/internal/structured"
)

// A word after a fence is a language tag only when it ends the line.
var fenceMarker = regexp.MustCompile("```(?:[A-Za-z0-9_+.-]*[ \\t]*\\r?\\n)?")

// SanitizeResponse recovers the candidate JSON text embedded in a model response.
// It removes code fences, keeps the widest {...} span and trims whitespace. The
// result is not guaranteed to parse.
func SanitizeResponse(raw string) string {
	cleaned := fenceMarker.ReplaceAllString(raw, "")

	if start := strings.Index(cleaned, "{"); start != -1 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	return strings.TrimSpace(cleaned)
}

// DecodeResponse sanitizes raw and parses it.
func DecodeResponse(stage, raw string) (*structured.Value, error) {
	sanitized := SanitizeResponse(raw)

	value, err := structured.Parse(sanitized)
	if err != nil {
		return nil, &MalformedResponseError{Stage: stage, Sanitized: sanitized, Err: err}
	}

	return value, nil
}

// DecodeObject is DecodeResponse restricted to a top-level object.
func DecodeObject(stage, raw string) (*structured.Object, error) {
	value, err := DecodeResponse(stage, raw)
	if err != nil {
		return nil, err
	}

	obj := value.Object()
	if obj == nil {
		return nil, &MalformedResponseError{
			Stage:     stage,
			Sanitized: SanitizeResponse(raw),
			Err:       fmt.Errorf("%w: expected an object, got %s", structured.ErrInvalid, value.Kind()),
		}
	}

	return obj, nil
}
