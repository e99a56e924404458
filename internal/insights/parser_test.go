package insights

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		result := Parse(raw)
		assert.False(t, result.IsValid())
		assert.Equal(t, KindInvalid, result.Kind)
		assert.Equal(t, []string{ErrNoData}, result.Errors)
		assert.Empty(t, result.Sections)
		assert.Nil(t, result.Roast)
	}
}

func TestParse_ExtractsRoast(t *testing.T) {
	result := Parse(`{"Overall portfolio health assessment":"ok","Roast":"burn"}`)

	require.True(t, result.IsValid())
	assert.Equal(t, KindValid, result.Kind)
	assert.Equal(t, map[string]string{"Overall portfolio health assessment": "ok"}, result.Insights())
	require.NotNil(t, result.Roast)
	assert.Equal(t, "burn", *result.Roast)
	assert.Empty(t, result.Errors)
}

func TestParse_RoastKeyPriority(t *testing.T) {
	t.Run("first matching key wins", func(t *testing.T) {
		result := Parse(`{"Hot Roast":"later","roast":"lower","Roast":"upper","Performance insights":"x"}`)
		require.NotNil(t, result.Roast)
		assert.Equal(t, "upper", *result.Roast)
		_, hasLower := result.section("roast")
		assert.True(t, hasLower, "later roast keys remain as sections")
	})

	t.Run("falsy roast values are skipped", func(t *testing.T) {
		for _, falsy := range []string{`null`, `false`, `0`, `0.0`} {
			result := Parse(`{"Roast":` + falsy + `,"roast":"second","Performance insights":"x"}`)
			require.NotNil(t, result.Roast, falsy)
			assert.Equal(t, "second", *result.Roast, falsy)
			_, kept := result.section("Roast")
			assert.True(t, kept, "a skipped roast key stays a section: %s", falsy)
		}

		result := Parse(`{"Roast":"","roast":"second","Performance insights":"x"}`)
		require.NotNil(t, result.Roast)
		assert.Equal(t, "second", *result.Roast)
	})

	t.Run("whitespace roast still wins", func(t *testing.T) {
		result := Parse(`{"Performance insights":"p","Roast":"   ","roast":"later key"}`)
		require.NotNil(t, result.Roast)
		assert.Equal(t, "   ", *result.Roast)
		later, ok := result.section("roast")
		require.True(t, ok)
		assert.Equal(t, "later key", later)
	})

	t.Run("non-string roast is rendered and removed", func(t *testing.T) {
		result := Parse(`{"Performance insights":"p","Roast":{"line":"burn"},"roast":"later key"}`)
		require.NotNil(t, result.Roast)
		assert.Equal(t, "{\n  \"line\": \"burn\"\n}", *result.Roast)
		_, leaked := result.section("Roast")
		assert.False(t, leaked)
		assert.Equal(t, map[string]string{"Performance insights": "p", "roast": "later key"}, result.Insights())
	})

	t.Run("numeric roast", func(t *testing.T) {
		result := Parse(`{"Hot Roast":1.50,"Performance insights":"p"}`)
		require.NotNil(t, result.Roast)
		assert.Equal(t, "1.5", *result.Roast)
	})

	t.Run("roast only is not a valid result", func(t *testing.T) {
		result := Parse(`{"Roast":"burn"}`)
		assert.False(t, result.IsValid())
		require.NotNil(t, result.Roast)
		assert.Contains(t, result.Errors, ErrNoValidInsights)
	})
}

func TestParse_ProseFallback(t *testing.T) {
	raw := "random text mentioning risk and portfolio"
	result := Parse(raw)

	require.True(t, result.IsValid())
	assert.Equal(t, KindFallback, result.Kind)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, FallbackTitle, result.Sections[0].Title)
	assert.True(t, strings.HasPrefix(raw, result.Sections[0].Content))
	assert.Contains(t, result.Errors, ErrUsedFallback)
	assert.True(t, strings.HasPrefix(result.Errors[0], "JSON parsing failed: "))
}

func TestParse_ProseWithoutKeywords(t *testing.T) {
	result := Parse("hello there, nothing to see")

	assert.False(t, result.IsValid())
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "JSON parsing failed: "))
}

func TestParse_FallbackTruncates(t *testing.T) {
	raw := "Portfolio " + strings.Repeat("é", 600)
	result := Parse(raw)

	require.Equal(t, KindFallback, result.Kind)
	content := result.Sections[0].Content
	assert.True(t, strings.HasSuffix(content, "..."))
	assert.Equal(t, 503, len([]rune(content)))
	assert.True(t, strings.HasPrefix(raw, strings.TrimSuffix(content, "...")))
}

func TestParse_FencedJSON(t *testing.T) {
	result := Parse("```json\n{\"Performance insights\":\"x\"}\n```")

	require.True(t, result.IsValid())
	assert.Equal(t, map[string]string{"Performance insights": "x"}, result.Insights())
}

func TestParse_StripsPreambleAndPostamble(t *testing.T) {
	raw := "Sure! Here is your analysis:\n{\"Suggested next steps\": \"  rebalance  \"}\nHope that helps."
	result := Parse(raw)

	require.True(t, result.IsValid())
	content, ok := result.section("Suggested next steps")
	require.True(t, ok)
	assert.Equal(t, "rebalance", content)
}

func TestParse_NonObject(t *testing.T) {
	for _, raw := range []string{`["risk", "portfolio"]`, `42`, `null`, `"portfolio risk"`} {
		result := Parse(raw)
		assert.False(t, result.IsValid(), raw)
		assert.Equal(t, []string{ErrNotObject}, result.Errors, raw)
	}
}

func TestParse_TruncatedJSONFallsBack(t *testing.T) {
	result := Parse(`{"Overall portfolio health assessment": "the portfolio is`)

	assert.Equal(t, KindFallback, result.Kind)
	assert.Len(t, result.Sections, 1)
}

func TestParse_Validation(t *testing.T) {
	raw := `{
		"  Performance insights  ": "  up  ",
		"": "nameless",
		"Empty": "   ",
		"Nested": {"a": 1, "b": [true]},
		"Count": 3,
		"Flag": false,
		"Missing": null
	}`
	result := Parse(raw)

	require.True(t, result.IsValid())
	assert.Equal(t, []string{"Invalid insight key: "}, result.Errors)

	titles := make([]string, 0, len(result.Sections))
	for _, sec := range result.Sections {
		titles = append(titles, sec.Title)
	}
	assert.Equal(t, []string{"Performance insights", "Nested", "Count", "Flag", "Missing"}, titles)

	perf, _ := result.section("Performance insights")
	assert.Equal(t, "up", perf)

	nested, _ := result.section("Nested")
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    true\n  ]\n}", nested)

	count, _ := result.section("Count")
	assert.Equal(t, "3", count)
	flag, _ := result.section("Flag")
	assert.Equal(t, "false", flag)
	missing, _ := result.section("Missing")
	assert.Equal(t, "null", missing)
}

func TestParse_NumbersUseShortestForm(t *testing.T) {
	tests := []struct {
		literal string
		want    string
	}{
		{"3", "3"},
		{"1.0", "1"},
		{"1e2", "100"},
		{"-2.50", "-2.5"},
		{"-0", "0"},
		{"0.000001", "0.000001"},
		{"1.5e-7", "1.5e-7"},
		{"1e21", "1e+21"},
		{"123456789012345678901", "123456789012345680000"},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			result := Parse(`{"Value":` + tt.literal + `}`)
			got, ok := result.section("Value")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_DuplicateKeysKeepFirstPosition(t *testing.T) {
	result := Parse(`{"A":"1","B":"2","A":"3"}`)

	require.Len(t, result.Sections, 2)
	assert.Equal(t, Section{Title: "A", Content: "3"}, result.Sections[0])
	assert.Equal(t, Section{Title: "B", Content: "2"}, result.Sections[1])
}

func TestParse_FallbackIsIdempotent(t *testing.T) {
	first := Parse("the portfolio carries some risk { not json")
	require.Equal(t, KindFallback, first.Kind)

	second := Parse(first.Sections[0].Content)
	third := Parse(first.Sections[0].Content)

	assert.Equal(t, second, third)
	assert.Equal(t, KindFallback, second.Kind)
}

func TestResult_MarshalJSONKeepsOrder(t *testing.T) {
	result := Parse(`{"Zeta":"z","Alpha":"a","Roast":"burn"}`)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isValid":true,"kind":"valid","insights":{"Zeta":"z","Alpha":"a"},"roast":"burn","errors":[]}`, string(data))
	assert.Less(t, strings.Index(string(data), "Zeta"), strings.Index(string(data), "Alpha"))
}

func TestResult_HasExpectedSections(t *testing.T) {
	assert.True(t, Parse(`{"Risk management recommendations":"diversify"}`).HasExpectedSections())
	assert.False(t, Parse(`{"Weather":"sunny"}`).HasExpectedSections())
}

func TestEmptyResult(t *testing.T) {
	result := EmptyResult()
	assert.False(t, result.IsValid())
	assert.Equal(t, []string{"No data available"}, result.Errors)
}

func TestParseProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("parse never panics and values are non-empty and trimmed", prop.ForAll(
		func(raw string) bool {
			result := Parse(raw)
			for _, sec := range result.Sections {
				if sec.Title == "" || strings.TrimSpace(sec.Title) != sec.Title {
					return false
				}
				if result.Kind == KindValid && (sec.Content == "" || strings.TrimSpace(sec.Content) != sec.Content) {
					return false
				}
			}
			return result.IsValid() == (len(result.Sections) > 0)
		},
		gen.AnyString(),
	))

	properties.Property("parse is deterministic", prop.ForAll(
		func(raw string) bool {
			a, _ := json.Marshal(Parse(raw))
			b, _ := json.Marshal(Parse(raw))
			return string(a) == string(b)
		},
		gen.AnyString(),
	))

	properties.Property("string-valued objects round-trip", prop.ForAll(
		func(title, content string) bool {
			for _, k := range RoastKeys {
				if title == k {
					return true
				}
			}
			obj, _ := json.Marshal(map[string]string{title: content})
			result := Parse(string(obj))
			got, ok := result.section(title)
			return ok && got == content
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
