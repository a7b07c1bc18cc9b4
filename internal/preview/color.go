package preview

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NeutralColor is returned when no configured color applies.
const NeutralColor = "#cccccc"

// StatusColors are explicit per-status overrides. Empty values are ignored.
type StatusColors struct {
	Approved string
	Rejected string
	Pending  string
	NA       string
}

// ColorConfig is the color part of the preview configuration.
// StatusColorMap is either a JSON object or a "Status=#color;..." list.
type ColorConfig struct {
	StatusColorMap string
	Overrides      StatusColors
}

// ParseColorMap reads a status → color mapping. A JSON object is tried first,
// then a semicolon separated key=value list. Keys are lower-cased. Input that
// fits neither form yields an empty map; it is never an error.
func ParseColorMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(input), &parsed); err == nil && parsed != nil {
		for k, v := range parsed {
			key := strings.ToLower(strings.TrimSpace(k))
			val := colorValue(v)
			if key != "" && val != "" {
				out[key] = val
			}
		}
		return out
	}

	for _, part := range strings.Split(input, ";") {
		kv := strings.Split(part, "=")
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		if key == "" {
			continue
		}
		out[strings.ToLower(key)] = strings.TrimSpace(kv[1])
	}
	return out
}

func colorValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	default:
		return fmt.Sprint(t)
	}
}

// colorRule yields a color for a status, or false to defer to the next rule.
type colorRule func(status string) (string, bool)

// ResolveColor picks the display color for status. Rules are tried in order:
// explicit override for a canonical status, the parsed color map, the
// fallback color, then NeutralColor.
func ResolveColor(status string, overrides StatusColors, colorMap map[string]string, fallback string) string {
	rules := []colorRule{
		overrideRule(overrides),
		mapRule(colorMap),
		constantRule(fallback),
	}
	for _, rule := range rules {
		if color, ok := rule(status); ok {
			return color
		}
	}
	return NeutralColor
}

func overrideRule(o StatusColors) colorRule {
	return func(status string) (string, bool) {
		var color string
		switch normalizeStatus(status) {
		case "approve":
			color = o.Approved
		case "reject":
			color = o.Rejected
		case "pending":
			color = o.Pending
		case "n/a", "na":
			color = o.NA
		}
		return color, color != ""
	}
}

func mapRule(m map[string]string) colorRule {
	return func(status string) (string, bool) {
		for _, key := range []string{normalizeStatus(status), strings.TrimSpace(status), status} {
			if color := m[key]; color != "" {
				return color, true
			}
		}
		return "", false
	}
}

func constantRule(color string) colorRule {
	return func(string) (string, bool) {
		return color, color != ""
	}
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// ColorResolver resolves status colors against one configuration, parsing the
// color map once.
type ColorResolver struct {
	overrides StatusColors
	colorMap  map[string]string
}

// NewColorResolver parses cfg.StatusColorMap and returns a resolver. The N/A
// override doubles as the fallback color.
func NewColorResolver(cfg ColorConfig) *ColorResolver {
	return &ColorResolver{
		overrides: cfg.Overrides,
		colorMap:  ParseColorMap(cfg.StatusColorMap),
	}
}

// Resolve returns the display color for status.
func (c *ColorResolver) Resolve(status string) string {
	return ResolveColor(status, c.overrides, c.colorMap, c.overrides.NA)
}

// CardStyle is the inline style for an item card of the given color.
func CardStyle(color string) string {
	if color == "" {
		return ""
	}
	return "border-left: 6px solid " + color
}

// IndicatorStyle is the inline style for the small status dot.
func IndicatorStyle(color string) string {
	if color == "" {
		return ""
	}
	return "background-color: " + color
}
