package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateText = `(0?[1-9]|1[0-2])/(0?[1-9]|[12][0-9]|3[01])(?:/(\d{2}|\d{4}))?`

var (
	dateParenPattern     = regexp.MustCompile(`\(\s*` + dateText + `\s*\)`)
	dateLinkParenPattern = regexp.MustCompile(`\(\s*\[\s*` + dateText + `\s*\]\(`)
	dateLinkTailPattern  = regexp.MustCompile(`\s*\(\s*\[\s*` + dateText + `\s*\]\([^)]+\)\s*\)\s*$`)
	dateParenTailPattern = regexp.MustCompile(`\s*\(\s*` + dateText + `\s*\)\s*$`)
)

// DateDisplay formats a date as M/D without leading zeros.
func DateDisplay(date time.Time) string {
	return fmt.Sprintf("%d/%d", int(date.Month()), date.Day())
}

// HasDateMarker reports whether text carries "(M/D[/Y])" or "([M/D[/Y]](".
func HasDateMarker(text string) bool {
	return dateParenPattern.MatchString(text) || dateLinkParenPattern.MatchString(text)
}

// LinkifyDates rewrites every plain "(M/D[/Y])" into "([M/D[/Y]](url))".
// Leading zeros on month and day are dropped.
func LinkifyDates(text, url string) string {
	return dateParenPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := dateParenPattern.FindStringSubmatch(match)
		month, _ := strconv.Atoi(groups[1])
		day, _ := strconv.Atoi(groups[2])
		display := fmt.Sprintf("%d/%d", month, day)
		if groups[3] != "" {
			display += "/" + groups[3]
		}
		return fmt.Sprintf("([%s](%s))", display, url)
	})
}

// StripTrailingDateMarker removes one trailing linked or plain date
// parenthetical.
func StripTrailingDateMarker(text string) string {
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return stripped
	}
	stripped = strings.TrimSpace(dateLinkTailPattern.ReplaceAllString(stripped, ""))
	return strings.TrimSpace(dateParenTailPattern.ReplaceAllString(stripped, ""))
}
