package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColorMap(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "json object",
			input: `{"Approved":"#2ecc71"," N/A ":"#999999","Empty":""}`,
			want:  map[string]string{"approved": "#2ecc71", "n/a": "#999999"},
		},
		{
			name:  "key value list",
			input: "Approved=#2ecc71; N/A = #999999;broken;a=b=c;=#fff",
			want:  map[string]string{"approved": "#2ecc71", "n/a": "#999999"},
		},
		{
			name:  "unbalanced json degrades to empty",
			input: `{"Approved":"#2ecc71"`,
			want:  map[string]string{},
		},
		{
			name:  "json null",
			input: "null",
			want:  map[string]string{},
		},
		{
			name:  "empty",
			input: "  ",
			want:  map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseColorMap(tt.input))
		})
	}
}

func TestResolveColor_Precedence(t *testing.T) {
	colorMap := ParseColorMap("approve=#222")

	got := ResolveColor("Approve", StatusColors{Approved: "#111"}, colorMap, "")
	assert.Equal(t, "#111", got, "override wins over map")

	got = ResolveColor("Approve", StatusColors{}, colorMap, "")
	assert.Equal(t, "#222", got, "map used without override")

	got = ResolveColor("N/A", StatusColors{}, map[string]string{}, "#999")
	assert.Equal(t, "#999", got, "fallback color")

	got = ResolveColor("N/A", StatusColors{}, map[string]string{}, "")
	assert.Equal(t, NeutralColor, got)
}

func TestResolveColor_CanonicalKeysOnly(t *testing.T) {
	o := StatusColors{Approved: "#a", Rejected: "#r", Pending: "#p", NA: "#n"}

	assert.Equal(t, "#a", ResolveColor("  APPROVE ", o, nil, ""))
	assert.Equal(t, "#r", ResolveColor("reject", o, nil, ""))
	assert.Equal(t, "#p", ResolveColor("Pending", o, nil, ""))
	assert.Equal(t, "#n", ResolveColor("NA", o, nil, ""))
	assert.Equal(t, "#n", ResolveColor("n/a", o, nil, ""))
	// "Approved" is not a canonical key, so the override does not apply.
	assert.Equal(t, NeutralColor, ResolveColor("Approved", o, nil, ""))
}

func TestResolveColor_MapLookupOrder(t *testing.T) {
	m := map[string]string{"in review": "#lower", "In Review": "#trimmed", " In Review ": "#raw"}
	assert.Equal(t, "#lower", ResolveColor(" In Review ", StatusColors{}, m, ""))

	delete(m, "in review")
	assert.Equal(t, "#trimmed", ResolveColor(" In Review ", StatusColors{}, m, ""))

	delete(m, "In Review")
	assert.Equal(t, "#raw", ResolveColor(" In Review ", StatusColors{}, m, ""))
}

func TestColorResolver_MalformedMapFallsThrough(t *testing.T) {
	r := NewColorResolver(ColorConfig{
		StatusColorMap: `{"Approved": [unbalanced`,
		Overrides:      StatusColors{NA: "#eeeeee"},
	})

	assert.Equal(t, "#eeeeee", r.Resolve("Approved"))

	r = NewColorResolver(ColorConfig{StatusColorMap: "((("})
	assert.Equal(t, NeutralColor, r.Resolve("Approved"))
}

func TestStyles(t *testing.T) {
	assert.Equal(t, "border-left: 6px solid #123", CardStyle("#123"))
	assert.Equal(t, "background-color: #123", IndicatorStyle("#123"))
	assert.Empty(t, CardStyle(""))
	assert.Empty(t, IndicatorStyle(""))
}
