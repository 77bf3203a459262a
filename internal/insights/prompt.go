package insights

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/stravainsights/internal/activities"
	"github.com/2beens/stravainsights/internal/analytics"
	"github.com/2beens/stravainsights/internal/users"
)

const (
	activitySystemPrompt = "You are an endurance training assistant. Be concise and actionable. " +
		"Use SI units, avoid medical advice, and flag anomalies cautiously."
	periodSystemPrompt = "You summarize an athlete's recent training. Be specific, short, and constructive. " +
		"Use SI units and avoid medical claims."

	maxTrendSnippets = 3
)

// TrendSnippet is one line of recent context added to an activity prompt
type TrendSnippet struct {
	Label string
	Value float64
	Count int
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func floatOrNA(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intOrNA(v *int) string {
	if v == nil {
		return "n/a"
	}
	return strconv.Itoa(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ActivityPrompt renders the user prompt for a single activity. At most
// maxTrendSnippets snippets are used.
func ActivityPrompt(user *users.User, activity *activities.Activity, snippets []TrendSnippet) string {
	profile := []string{
		"athlete: " + orNA(user.DisplayName()),
		"sex: " + orNA(user.Sex),
		"weight_kg: " + floatOrNA(user.Weight),
		"city: " + orNA(user.City),
		"country: " + orNA(user.Country),
	}

	details := []string{
		"type: " + orNA(activity.ActivityType),
		"name: " + orNA(activity.Name),
		"distance_m: " + floatOrNA(activity.Distance),
		"moving_time_s: " + intOrNA(activity.MovingTime),
		"elevation_gain_m: " + floatOrNA(activity.TotalElevationGain),
		"avg_speed_mps: " + floatOrNA(activity.AverageSpeed),
		"avg_hr: " + floatOrNA(activity.AverageHeartrate),
		"kudos: " + strconv.Itoa(activity.KudosCount),
		"start_date: " + activity.StartDate.UTC().Format(time.RFC3339),
	}

	var sb strings.Builder
	sb.WriteString("Athlete profile:\n- ")
	sb.WriteString(strings.Join(profile, "\n- "))
	sb.WriteString("\n\nActivity details:\n- ")
	sb.WriteString(strings.Join(details, "\n- "))

	if len(snippets) > maxTrendSnippets {
		snippets = snippets[:maxTrendSnippets]
	}
	if len(snippets) > 0 {
		sb.WriteString("\nRecent trend snippets:")
		for _, s := range snippets {
			fmt.Fprintf(&sb, "\n%s value=%s count=%d", orNA(s.Label), formatFloat(s.Value), s.Count)
		}
	}

	sb.WriteString("\n\nTask: Return JSON with keys [summary(str), coach_tips(list[str], 2-3 items), tags(list[str])].")
	return sb.String()
}

// PeriodPrompt renders the user prompt summarizing a trailing window
func PeriodPrompt(user *users.User, window activities.DateRange, overview *analytics.Overview) string {
	bySport := make([]string, 0, len(overview.BySport))
	for _, c := range overview.BySport {
		bySport = append(bySport, fmt.Sprintf(
			"%s: count=%d, distance_m=%s, time_s=%d",
			c.ActivityType, c.Count, formatFloat(c.TotalDistance), c.TotalTime,
		))
	}
	bySportTxt := "none"
	if len(bySport) > 0 {
		bySportTxt = strings.Join(bySport, "; ")
	}

	return fmt.Sprintf(
		"Athlete: %s (%s, %s).\nDate range: %s to %s.\n"+
			"Overview: total activities=%d, distance_m=%s, time_s=%d, elevation_m=%s.\n"+
			"By sport: %s.\n"+
			"Task: Return JSON with keys [summary, coach_tips(2-3), tags].",
		orNA(user.DisplayName()), orNA(user.City), orNA(user.Country),
		window.StartDate.Format(time.RFC3339), window.EndDate.Format(time.RFC3339),
		overview.Summary.Count,
		formatFloat(overview.Summary.TotalDistance),
		overview.Summary.TotalTime,
		formatFloat(overview.Summary.TotalElevation),
		bySportTxt,
	)
}
