package insights

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind tags how a Result was produced
type Kind string

const (
	// KindValid means the text was a JSON object with at least one usable section
	KindValid Kind = "valid"
	// KindFallback means JSON parsing failed and a summary was synthesized from prose
	KindFallback Kind = "fallback"
	// KindInvalid means nothing usable could be recovered
	KindInvalid Kind = "invalid"
)

// Section is one titled narrative block
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Sections is an ordered list of sections. It marshals to a JSON object
// whose keys keep the section order.
type Sections []Section

// MarshalJSON writes the sections as an ordered JSON object
func (s Sections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sec.Title)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(sec.Content)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the outcome of parsing language-model output.
// Errors are diagnostics only; a Result with errors may still be valid.
type Result struct {
	Kind     Kind
	Sections Sections
	Roast    *string
	Errors   []string
}

// IsValid reports whether the result carries at least one section
func (r *Result) IsValid() bool {
	return r != nil && r.Kind != KindInvalid
}

// section returns the content of the section with the given title
func (r *Result) section(title string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, sec := range r.Sections {
		if sec.Title == title {
			return sec.Content, true
		}
	}
	return "", false
}

// Insights returns the sections as a plain map
func (r *Result) Insights() map[string]string {
	out := make(map[string]string, len(r.Sections))
	for _, sec := range r.Sections {
		out[sec.Title] = sec.Content
	}
	return out
}

// HasExpectedSections reports whether any section title mentions the leading
// word of one of the ExpectedSections titles.
func (r *Result) HasExpectedSections() bool {
	if r == nil {
		return false
	}
	for _, expected := range ExpectedSections {
		word := strings.ToLower(strings.Fields(expected)[0])
		for _, sec := range r.Sections {
			if strings.Contains(strings.ToLower(sec.Title), word) {
				return true
			}
		}
	}
	return false
}

// MarshalJSON renders the result for API responses
func (r Result) MarshalJSON() ([]byte, error) {
	sections := r.Sections
	if sections == nil {
		sections = Sections{}
	}
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return json.Marshal(struct {
		IsValid  bool     `json:"isValid"`
		Kind     Kind     `json:"kind"`
		Insights Sections `json:"insights"`
		Roast    *string  `json:"roast,omitempty"`
		Errors   []string `json:"errors"`
	}{
		IsValid:  r.IsValid(),
		Kind:     r.Kind,
		Insights: sections,
		Roast:    r.Roast,
		Errors:   errs,
	})
}

// EmptyResult is the placeholder used before any insights exist
func EmptyResult() *Result {
	return &Result{
		Kind:     KindInvalid,
		Sections: Sections{},
		Errors:   []string{"No data available"},
	}
}
