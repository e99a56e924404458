// Package insights recovers structured narrative sections from language-model
// output. The model is asked for a single JSON object but may return fenced
// JSON, JSON wrapped in prose, truncated JSON, or prose alone. Parse never
// panics and never returns a Go error; problems are reported in Result.Errors.
package insights

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ExpectedSections are the section titles the prompt asks for
var ExpectedSections = []string{
	"Overall portfolio health assessment",
	"Risk management recommendations",
	"Performance insights",
	"Suggested next steps",
}

// RoastKeys are checked in order; the first one holding a truthy value becomes
// the roast and later spellings stay ordinary sections.
var RoastKeys = []string{"Roast", "roast", "Hot Roast"}

// FallbackTitle is the title of the section synthesized from prose output
const FallbackTitle = "Analysis Summary"

const fallbackMaxRunes = 500

var (
	fallbackKeywords = []string{"portfolio", "risk", "performance"}

	jsonFence  = regexp.MustCompile("```json\\s*")
	plainFence = regexp.MustCompile("```\\s*")
)

// Error messages recorded in Result.Errors
const (
	ErrNoData          = "No insights data provided"
	ErrNotObject       = "Parsed data is not a valid object"
	ErrNoValidInsights = "No valid insights found in the expected format"
	ErrUsedFallback    = "Used fallback parsing method"
)

// rawField is one key/value pair of the decoded object, in source order
type rawField struct {
	key   string
	value json.RawMessage
}

// Parse runs the staged pipeline over raw model output
func Parse(raw string) *Result {
	result := &Result{Kind: KindInvalid, Sections: Sections{}, Errors: []string{}}

	if strings.TrimSpace(raw) == "" {
		result.Errors = append(result.Errors, ErrNoData)
		return result
	}

	cleaned := clean(raw)

	fields, err := decodeObject(cleaned)
	if err != nil {
		if errors.Is(err, errNotObject) {
			result.Errors = append(result.Errors, ErrNotObject)
			return result
		}
		result.Errors = append(result.Errors, fmt.Sprintf("JSON parsing failed: %v", err))
		if summary, ok := fallbackSummary(raw); ok {
			result.Kind = KindFallback
			result.Sections = Sections{{Title: FallbackTitle, Content: summary}}
			result.Errors = append(result.Errors, ErrUsedFallback)
		}
		return result
	}

	fields, result.Roast = extractRoast(fields)
	result.Sections, result.Errors = validate(fields)
	if len(result.Sections) > 0 {
		result.Kind = KindValid
	} else {
		result.Errors = append(result.Errors, ErrNoValidInsights)
	}

	return result
}

// clean strips code fences and anything outside the outermost braces
func clean(raw string) string {
	cleaned := jsonFence.ReplaceAllString(raw, "")
	cleaned = plainFence.ReplaceAllString(cleaned, "")

	if first := strings.Index(cleaned, "{"); first > 0 {
		cleaned = cleaned[first:]
	}
	if last := strings.LastIndex(cleaned, "}"); last != -1 && last < len(cleaned)-1 {
		cleaned = cleaned[:last+1]
	}

	return strings.TrimSpace(cleaned)
}

var errNotObject = errors.New("not an object")

// decodeObject parses text as a single JSON object and returns its fields in
// source order. A duplicate key replaces the earlier value in place.
// Valid JSON that is not an object yields errNotObject.
func decodeObject(text string) ([]rawField, error) {
	var probe interface{}
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, err
	}
	if _, ok := probe.(map[string]interface{}); !ok {
		return nil, errNotObject
	}

	dec := json.NewDecoder(strings.NewReader(text))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var fields []rawField
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			fields[i].value = value
			continue
		}
		index[key] = len(fields)
		fields = append(fields, rawField{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return fields, nil
}

// extractRoast removes the first roast key whose value is truthy: anything but
// "", null, false and zero. String values are kept verbatim, other values are
// rendered like section content.
func extractRoast(fields []rawField) ([]rawField, *string) {
	for _, roastKey := range RoastKeys {
		for i, f := range fields {
			if f.key != roastKey || !truthy(f.value) {
				continue
			}
			var text string
			if err := json.Unmarshal(f.value, &text); err != nil {
				text, _ = renderValue(f.value)
			}
			rest := make([]rawField, 0, len(fields)-1)
			rest = append(rest, fields[:i]...)
			rest = append(rest, fields[i+1:]...)
			return rest, &text
		}
	}
	return fields, nil
}

func truthy(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case 'n', 'f':
		return false
	case '"':
		return !bytes.Equal(trimmed, []byte(`""`))
	case '{', '[', 't':
		return true
	default:
		v, err := strconv.ParseFloat(string(trimmed), 64)
		return err != nil || v != 0
	}
}

// validate turns the remaining fields into display sections
func validate(fields []rawField) (Sections, []string) {
	sections := Sections{}
	errs := []string{}
	index := make(map[string]int)

	for _, f := range fields {
		title := strings.TrimSpace(f.key)
		if title == "" {
			errs = append(errs, fmt.Sprintf("Invalid insight key: %s", f.key))
			continue
		}

		content, ok := renderValue(f.value)
		if !ok {
			continue
		}

		if i, seen := index[title]; seen {
			sections[i].Content = content
			continue
		}
		index[title] = len(sections)
		sections = append(sections, Section{Title: title, Content: content})
	}

	return sections, errs
}

// renderValue converts a JSON value to display text. Strings are trimmed and
// dropped when empty, containers are pretty-printed, numbers are printed in
// their shortest decimal form and true, false and null keep their literal form.
func renderValue(value json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return "", false
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return "", false
		}
		text = strings.TrimSpace(text)
		return text, text != ""
	case '{', '[':
		var out bytes.Buffer
		if err := json.Indent(&out, trimmed, "", "  "); err != nil {
			return string(trimmed), true
		}
		return out.String(), true
	case 't', 'f', 'n':
		return string(trimmed), true
	default:
		return formatNumber(string(trimmed)), true
	}
}

// formatNumber prints a JSON number the way JavaScript's String does:
// 1.0 is "1", 1e2 is "100", and magnitudes outside [1e-6, 1e21) use an
// exponent such as "1e+21" or "1.5e-7".
func formatNumber(literal string) string {
	v, err := strconv.ParseFloat(literal, 64)
	if err != nil || math.IsInf(v, 0) {
		return literal
	}
	if v == 0 {
		return "0"
	}
	if abs := math.Abs(v); abs >= 1e21 || abs < 1e-6 {
		out := strconv.FormatFloat(v, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(out, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fallbackSummary keeps a prefix of prose output that looks on-topic
func fallbackSummary(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	matched := false
	for _, kw := range fallbackKeywords {
		if strings.Contains(lower, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	if utf8.RuneCountInString(raw) <= fallbackMaxRunes {
		return raw, true
	}
	runes := []rune(raw)
	return string(runes[:fallbackMaxRunes]) + "...", true
}
