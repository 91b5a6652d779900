package extraction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date without time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date and whether it exists on the calendar.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseISODate parses YYYY-MM-DD.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

// DaysUntil returns the number of days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseISODate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

// DateGrammar matches the date spellings found in court filings: ISO dates,
// US numeric dates with slashes or dashes, "March 5th, 2024" and "5 March 2024".
const DateGrammar = `\b(?:\d{4}-\d{1,2}-\d{1,2}` +
	`|\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2})` +
	`|(?:` + monthNames + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}` +
	`|\d{1,2}(?:st|nd|rd|th)?\s+(?:` + monthNames + `)\.?,?\s+\d{4})\b`

var (
	dateGrammarRe = regexp.MustCompile(`(?i)` + DateGrammar)
	isoRe         = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	numericRe     = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2}|\d{4})$`)
	monthFirstRe  = regexp.MustCompile(`(?i)^(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})$`)
	dayFirstRe    = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthNames + `)\.?,?\s+(\d{4})$`)
	leadPhraseRe  = regexp.MustCompile(`(?i)^\s*(?:on\s+or\s+about|occurred\s+on|happened\s+on|on)\s+`)
)

var monthByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDateText finds the first date in raw and converts it to a Date.
// Leading phrases such as "on or about" are ignored.
func ParseDateText(raw string) (Date, error) {
	cleaned := leadPhraseRe.ReplaceAllString(raw, "")
	found := dateGrammarRe.FindString(cleaned)
	if found == "" {
		return Date{}, fmt.Errorf("no date in %q", strings.TrimSpace(raw))
	}
	found = strings.Join(strings.Fields(found), " ")

	var (
		year, day int
		month     time.Month
	)
	switch {
	case isoRe.MatchString(found):
		m := isoRe.FindStringSubmatch(found)
		year, month, day = atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3])
	case numericRe.MatchString(found):
		m := numericRe.FindStringSubmatch(found)
		month, day, year = time.Month(atoi(m[1])), atoi(m[2]), expandYear(m[3])
	case monthFirstRe.MatchString(found):
		m := monthFirstRe.FindStringSubmatch(found)
		month, day, year = monthByPrefix[strings.ToLower(m[1][:3])], atoi(m[2]), atoi(m[3])
	case dayFirstRe.MatchString(found):
		m := dayFirstRe.FindStringSubmatch(found)
		day, month, year = atoi(m[1]), monthByPrefix[strings.ToLower(m[2][:3])], atoi(m[3])
	default:
		return Date{}, fmt.Errorf("unrecognized date %q", found)
	}

	d, ok := NewDate(year, month, day)
	if !ok {
		return Date{}, fmt.Errorf("%q is not a calendar date", found)
	}
	return d, nil
}

// expandYear maps two-digit years onto 1970..2069.
func expandYear(s string) int {
	y := atoi(s)
	if len(s) == 4 {
		return y
	}
	if y < 70 {
		return 2000 + y
	}
	return 1900 + y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
