package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minWeek = 1
	maxWeek = 53
)

var (
	reContentWeek = regexp.MustCompile(`Invoice for week (\d+)`)

	// Tried in order against the lower-cased file name.
	filenameWeekPatterns = []*regexp.Regexp{
		regexp.MustCompile(`wk\s*(\d+)`),
		regexp.MustCompile(`week\s*(\d+)`),
		regexp.MustCompile(`w(\d+)`),
	}
	reBareNumber = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// ContentWeek reads the week from the "Invoice for week N" phrase.
func ContentWeek(text string) Result {
	if m := reContentWeek.FindStringSubmatch(text); m != nil {
		return OK(m[1])
	}
	return NotFound()
}

// FilenameWeek looks for an explicit week token such as "Wk07", "week 7" or
// "w7". Only the first hit of each pattern is considered.
func FilenameWeek(name string) Result {
	lower := strings.ToLower(name)
	for _, re := range filenameWeekPatterns {
		if r, ok := boundedWeek(re, lower); ok {
			return r
		}
	}
	return NotFound()
}

// GuessWeek takes the first one or two digit number in the file name when it
// is a plausible week. Unrelated numbers can produce false positives.
func GuessWeek(name string) Result {
	if r, ok := boundedWeek(reBareNumber, strings.ToLower(name)); ok {
		return r
	}
	return NotFound()
}

func boundedWeek(re *regexp.Regexp, s string) (Result, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return Result{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < minWeek || n > maxWeek {
		return Result{}, false
	}
	return OK(strconv.Itoa(n)), true
}
