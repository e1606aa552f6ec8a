package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/horizon-ai/docchat/internal/session"
)

// DefaultTimezone is the business timezone used when DEFAULT_TIMEZONE is
// unset.
const DefaultTimezone = "Africa/Cairo"

// dateKeywords trigger date enrichment, in English and Arabic.
var dateKeywords = []string{
	"today", "tomorrow", "yesterday", "now", "current", "date", "time",
	"when", "what day", "what time", "this week", "next week", "last week",
	"this month", "next month", "last month", "this year", "next year",
	"اليوم", "غدا", "أمس", "الآن", "الحالي", "التاريخ", "الوقت",
	"متى", "أي يوم", "أي وقت", "هذا الأسبوع", "الأسبوع القادم", "الأسبوع الماضي",
	"هذا الشهر", "الشهر القادم", "الشهر الماضي", "هذا العام", "العام القادم",
}

// relativeDayOffsets maps simple relative-day phrases to day deltas.
var relativeDayOffsets = []struct {
	phrase string
	days   int
}{
	{"today", 0},
	{"tomorrow", 1},
	{"yesterday", -1},
	{"اليوم", 0},
	{"غدا", 1},
	{"أمس", -1},
}

// DateAgent resolves date-related phrasing in questions and injects the
// current date and time into the retrieved context so the model can answer
// "when" questions without hallucinating.
type DateAgent struct {
	loc   *time.Location
	clock session.Clock
}

// NewDateAgent creates an agent for the named timezone. clock may be nil
// for the wall clock.
func NewDateAgent(timezone string, clock session.Clock) (*DateAgent, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	if clock == nil {
		clock = session.RealClock()
	}
	return &DateAgent{loc: loc, clock: clock}, nil
}

// isDateRelated reports whether the query mentions any date keyword.
func (a *DateAgent) isDateRelated(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range dateKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// weekStartOffset is the number of days since the start of the Monday-based
// week.
func weekStartOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// resolveRelativeDate returns the date a relative phrase refers to, or a
// zero time when the query holds no resolvable phrase. Day phrases win over
// week phrases, matching keyword precedence.
func (a *DateAgent) resolveRelativeDate(query string) time.Time {
	q := strings.ToLower(query)
	now := a.clock.Now().In(a.loc)

	for _, rel := range relativeDayOffsets {
		if strings.Contains(q, rel.phrase) {
			return now.AddDate(0, 0, rel.days)
		}
	}
	if strings.Contains(q, "next week") || strings.Contains(q, "الأسبوع القادم") {
		return now.AddDate(0, 0, 7-weekStartOffset(now))
	}
	if strings.Contains(q, "last week") || strings.Contains(q, "الأسبوع الماضي") {
		return now.AddDate(0, 0, -(weekStartOffset(now) + 7))
	}
	return time.Time{}
}

// EnhanceContext appends a current date and time block to the retrieved
// context when the question is date-related; otherwise the context passes
// through unchanged.
func (a *DateAgent) EnhanceContext(context, query string) string {
	if !a.isDateRelated(query) {
		return context
	}

	now := a.clock.Now().In(a.loc)

	var sb strings.Builder
	sb.WriteString(context)
	sb.WriteString("\n\nCURRENT DATE AND TIME INFORMATION:\n")
	fmt.Fprintf(&sb, "Current Date: %s\n", now.Format("Monday, January 02, 2006"))
	fmt.Fprintf(&sb, "Current Time: %s\n", now.Format("03:04 PM"))
	fmt.Fprintf(&sb, "Timezone: %s\n", a.loc.String())

	if target := a.resolveRelativeDate(query); !target.IsZero() {
		fmt.Fprintf(&sb, "Requested Date: %s\n", target.Format("Monday, January 02, 2006"))
	}
	return sb.String()
}
