package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/2beens/stravainsights/internal/activities"
)

const (
	maxSummaryRunes = 280
	maxCoachTips    = 3
	maxTags         = 5
)

func fallbackReply(provider, model string) map[string]any {
	return map[string]any{
		"summary": "Solid session focusing on aerobic base.",
		"coach_tips": []any{
			"Keep cadence smooth and controlled.",
			"Fuel earlier for longer efforts.",
		},
		"tags":  []any{"endurance"},
		"model": fmt.Sprintf("fallback:%s:%s", provider, model),
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// a single value is treated as a one element list, blanks are dropped
func asTextList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if isBlank(v) {
			return []string{}
		}
		items = []any{v}
	}

	list := make([]string, 0, len(items))
	for _, item := range items {
		if isBlank(item) {
			continue
		}
		list = append(list, strings.TrimSpace(asText(item)))
	}
	return list
}

// Normalize coerces a generator reply into a bounded Insight. Tags are
// lowercased but not deduplicated.
func Normalize(reply map[string]any, defaultModel string, generatedAt time.Time) activities.Insight {
	tips := asTextList(reply["coach_tips"])
	if len(tips) > maxCoachTips {
		tips = tips[:maxCoachTips]
	}

	tags := asTextList(reply["tags"])
	for i := range tags {
		tags[i] = strings.ToLower(tags[i])
	}
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	model := strings.TrimSpace(asText(reply["model"]))
	if model == "" {
		model = defaultModel
	}

	return activities.Insight{
		Summary:     truncateRunes(strings.TrimSpace(asText(reply["summary"])), maxSummaryRunes),
		CoachTips:   tips,
		Tags:        tags,
		Model:       model,
		GeneratedAt: generatedAt.UTC(),
	}
}
