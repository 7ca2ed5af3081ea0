// Package extractor recovers structured analysis payloads from raw model
// output. Model responses are frequently wrapped in markdown fences,
// double-encoded, or polluted with control characters and trailing commas;
// the extractor applies a fixed repair ladder before giving up.
package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/mercatus/internal/models"
)

const rawSampleLimit = 200

var (
	// Match: ```json\n or ```\n at start, and ``` at end
	fencePattern = regexp.MustCompile("(?s)^\\s*```(?:json|JSON)?\\s*\\n?(.*?)\\n?\\s*```\\s*$")

	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// Extractor parses and validates model responses.
type Extractor struct {
	validate *validator.Validate
}

// New creates an extractor.
func New() *Extractor {
	return &Extractor{
		validate: validator.New(),
	}
}

// Extract recovers an LLMAnalysis from raw model output. The repair ladder
// is applied in order: fence stripping, direct parse, double-encoded parse,
// control character and trailing comma cleanup, then a balanced-brace scan.
// A payload that parses but fails validation is rejected outright.
func (e *Extractor) Extract(raw string) (*models.LLMAnalysis, error) {
	cleaned := cleanMarkdownFences(raw)
	if cleaned == "" {
		return nil, &models.ExtractionError{
			Reason:    "empty response",
			RawSample: sample(raw),
		}
	}

	candidates := []struct {
		name string
		text string
		ok   bool
	}{}
	addCandidate := func(name, text string, ok bool) {
		candidates = append(candidates, struct {
			name string
			text string
			ok   bool
		}{name, text, ok})
	}

	addCandidate("direct", cleaned, true)

	inner, ok := decodeDoubleEncoded(cleaned)
	addCandidate("double-encoded", inner, ok)

	addCandidate("sanitized", sanitize(cleaned), true)

	fragment, ok := extractBalancedObject(sanitize(cleaned))
	addCandidate("brace-scan", fragment, ok)

	var lastErr error
	for _, c := range candidates {
		if !c.ok {
			continue
		}
		analysis, err := e.parseAndValidate(c.text)
		if err == nil {
			return analysis, nil
		}
		lastErr = err
	}

	return nil, &models.ExtractionError{
		Reason:    fmt.Sprintf("all parse strategies failed: %v", lastErr),
		RawSample: sample(raw),
	}
}

// parseAndValidate decodes one candidate string and enforces the payload
// contract: all three blocks present, enums and ranges valid.
func (e *Extractor) parseAndValidate(text string) (*models.LLMAnalysis, error) {
	var analysis models.LLMAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, err
	}

	if err := e.validate.Struct(&analysis); err != nil {
		return nil, fmt.Errorf("payload validation failed: %w", err)
	}

	return &analysis, nil
}

// cleanMarkdownFences removes markdown code fences from a response.
func cleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// decodeDoubleEncoded handles responses where the JSON object was itself
// serialized as a JSON string.
func decodeDoubleEncoded(s string) (string, bool) {
	if !strings.HasPrefix(s, `"`) {
		return "", false
	}
	var inner string
	if err := json.Unmarshal([]byte(s), &inner); err != nil {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// sanitize strips unescaped control characters and trailing commas, the two
// most common defects in otherwise well-formed model JSON. All of 0x00-0x1F
// is removed, newlines and tabs included: a raw newline inside a string value
// (multi-line summaries) is invalid JSON, and outside strings the whitespace
// carries no meaning.
func sanitize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || (r >= 0x7F && r <= 0x9F) {
			continue
		}
		sb.WriteRune(r)
	}
	return trailingCommaPattern.ReplaceAllString(sb.String(), "$1")
}

// extractBalancedObject scans for the first balanced top-level JSON object,
// skipping prose before and after it. String literals and escapes are
// respected so braces inside summaries do not break the scan.
func extractBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// sample truncates raw output for inclusion in extraction errors.
func sample(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= rawSampleLimit {
		return raw
	}
	return raw[:rawSampleLimit]
}
