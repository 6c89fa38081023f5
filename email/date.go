package email

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Tz describes the timezone part of a parsed date. West is true for
// zones behind UTC. The zero value is UTC.
type Tz struct {
	Name    string
	Hours   int
	Minutes int
	West    bool
}

// Obsolete timezone names still seen in Date headers. Several
// abbreviations are ambiguous; the interpretations kept here follow
// common mail usage. Keep in alphabetical order.
var timeZones = []Tz{
	{"aat", 1, 0, true},  // Atlantic Africa Time
	{"adt", 4, 0, false}, // Arabia DST
	{"ast", 3, 0, false}, // Arabia
	{"bst", 1, 0, false}, // British DST
	{"cat", 1, 0, false}, // Central Africa
	{"cdt", 5, 0, true},
	{"cest", 2, 0, false}, // Central Europe DST
	{"cet", 1, 0, false},  // Central Europe
	{"cst", 6, 0, true},
	{"eat", 3, 0, false}, // East Africa
	{"edt", 4, 0, true},
	{"eest", 3, 0, false}, // Eastern Europe DST
	{"eet", 2, 0, false},  // Eastern Europe
	{"egst", 0, 0, false}, // Eastern Greenland DST
	{"egt", 1, 0, true},   // Eastern Greenland
	{"est", 5, 0, true},
	{"gmt", 0, 0, false},
	{"gst", 4, 0, false}, // Persian Gulf
	{"hkt", 8, 0, false}, // Hong Kong
	{"ict", 7, 0, false}, // Indochina
	{"idt", 3, 0, false}, // Israel DST
	{"ist", 2, 0, false}, // Israel
	{"jst", 9, 0, false}, // Japan
	{"kst", 9, 0, false}, // Korea
	{"mdt", 6, 0, true},
	{"met", 1, 0, false}, // now officially CET
	{"met dst", 2, 0, false},
	{"msd", 4, 0, false}, // Moscow DST
	{"msk", 3, 0, false}, // Moscow
	{"mst", 7, 0, true},
	{"nzdt", 13, 0, false}, // New Zealand DST
	{"nzst", 12, 0, false}, // New Zealand
	{"pdt", 7, 0, true},
	{"pst", 8, 0, true},
	{"sat", 2, 0, false}, // South Africa
	{"smt", 4, 0, false}, // Seychelles
	{"sst", 11, 0, true}, // Samoa
	{"utc", 0, 0, false},
	{"wat", 0, 0, false},  // West Africa
	{"west", 1, 0, false}, // Western Europe DST
	{"wet", 0, 0, false},  // Western Europe
	{"wgst", 2, 0, true},  // Western Greenland DST
	{"wgt", 3, 0, true},   // Western Greenland
	{"wst", 8, 0, false},  // Western Australia
}

var monthNames = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

var weekdayPrefixes = []string{
	"Mon,", "Tue,", "Wed,", "Thu,", "Fri,", "Sat,", "Sun,",
}

func findTz(s string) (Tz, bool) {
	for _, tz := range timeZones {
		if strings.EqualFold(tz.Name, s) {
			return tz, true
		}
	}
	return Tz{}, false
}

// checkMonth matches the first three bytes of s against the month
// abbreviations, case-sensitively. It returns the 0-based month or -1.
func checkMonth(s string) int {
	if len(s) < 3 {
		return -1
	}
	for i, m := range monthNames {
		if s[:3] == m {
			return i
		}
	}
	return -1
}

// clock is a broken-down time; year counts from 1900 like the headers'
// two-digit forms after adjustment, mon is 0-based.
type clock struct {
	year, mon, mday, hour, min, sec int
}

var accumDaysPerMonth = [12]int{
	0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334,
}

// makeTime converts a broken-down UTC time to Unix seconds. The leap
// rule is every fourth year, which holds from 1970 through 2099.
func makeTime(t clock) int64 {
	if t.year > 10000 {
		return math.MaxInt64
	}
	if t.year < -10000 {
		return math.MinInt64
	}
	if t.mday < 1 || t.mday > 31 {
		return math.MinInt64
	}
	if t.hour < 0 || t.hour > 23 || t.min < 0 || t.min > 59 || t.sec < 0 || t.sec > 60 {
		return math.MinInt64
	}
	if t.year > 9999 {
		return math.MaxInt64
	}

	yday := accumDaysPerMonth[t.mon%12] + t.mday
	if t.year%4 != 0 || t.mon < 2 {
		yday--
	}

	g := int64(yday)
	g += int64(t.year-70) * 365
	g += int64(t.year-69) / 4
	g = g*24 + int64(t.hour)
	g = g*60 + int64(t.min)
	g = g*60 + int64(t.sec)
	return g
}

// addTzOffset shifts a UTC time by a zone offset, west adding and east
// subtracting. Sentinel values pass through.
func addTzOffset(t int64, west bool, hours, minutes int) int64 {
	if t == math.MaxInt64 || t == math.MinInt64 {
		return t
	}
	off := int64(hours)*3600 + int64(minutes)*60
	if west {
		return t + off
	}
	return t - off
}

func parseSmallUint(s string) (val, width int) {
	for width < len(s) && width < 5 && s[width] >= '0' && s[width] <= '9' {
		val = val*10 + int(s[width]-'0')
		width++
	}
	return val, width
}

func isAlphaByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseDateStrict handles well-formed dates without comments or stray
// whitespace, except a trailing comment, which is common for zone names.
func parseDateStrict(s string) (int64, Tz, bool) {
	if len(s) >= 5 && s[4] == ' ' {
		for _, wd := range weekdayPrefixes {
			if strings.EqualFold(s[:4], wd) {
				s = s[5:]
				break
			}
		}
	}
	for len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}
	if len(s) == 0 || s[0] < '0' || s[0] > '9' {
		return 0, Tz{}, false
	}

	var tm clock

	day, w := parseSmallUint(s)
	if w == 0 || w > 2 || day > 31 {
		return 0, Tz{}, false
	}
	tm.mday = day
	s = s[w:]

	if len(s) == 0 || s[0] != ' ' {
		return 0, Tz{}, false
	}
	s = s[1:]

	tm.mon = checkMonth(s)
	if tm.mon == -1 {
		return 0, Tz{}, false
	}
	s = s[3:]

	if len(s) == 0 || s[0] != ' ' {
		return 0, Tz{}, false
	}
	s = s[1:]

	year, w := parseSmallUint(s)
	if w != 2 && w != 4 {
		return 0, Tz{}, false
	}
	if year < 50 {
		year += 100
	} else if year >= 1900 {
		year -= 1900
	}
	tm.year = year
	s = s[w:]

	if len(s) == 0 || s[0] != ' ' {
		return 0, Tz{}, false
	}
	s = s[1:]

	if len(s) < 3 || s[0] < '0' || s[0] > '2' || s[1] < '0' || s[1] > '9' || s[2] != ':' {
		return 0, Tz{}, false
	}
	tm.hour = int(s[0]-'0')*10 + int(s[1]-'0')
	if tm.hour > 23 {
		return 0, Tz{}, false
	}
	s = s[3:]

	if len(s) < 2 || s[0] < '0' || s[0] > '5' || s[1] < '0' || s[1] > '9' {
		return 0, Tz{}, false
	}
	tm.min = int(s[0]-'0')*10 + int(s[1]-'0')
	s = s[2:]

	if len(s) > 0 && s[0] == ':' {
		s = s[1:]
		if len(s) < 2 || s[0] < '0' || s[0] > '5' || s[1] < '0' || s[1] > '9' {
			return 0, Tz{}, false
		}
		tm.sec = int(s[0]-'0')*10 + int(s[1]-'0')
		s = s[2:]
	}

	for len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}

	n := len(s)
	for n > 0 && s[n-1] == ' ' {
		n--
	}
	// A trailing "(ZONE)" comment is stripped; anything more exotic in
	// parentheses sends the whole string to the lax parser.
	if n >= 2 && s[n-1] == ')' {
		cut := -1
		for i := n - 2; i >= 0; i-- {
			if s[i] == '(' {
				cut = i
				break
			}
			if !isAlphaByte(s[i]) && s[i] != ' ' {
				return 0, Tz{}, false
			}
		}
		if cut >= 0 {
			n = cut
		}
	}
	for n > 0 && s[n-1] == ' ' {
		n--
	}
	s = s[:n]

	var tz Tz
	if len(s) > 0 {
		if len(s) == 5 && (s[0] == '+' || s[0] == '-') &&
			isDigits(s[1:]) {
			tz.West = s[0] == '-'
			tz.Hours = int(s[1]-'0')*10 + int(s[2]-'0')
			tz.Minutes = int(s[3]-'0')*10 + int(s[4]-'0')
		} else {
			for i := 0; i < len(s); i++ {
				if !isAlphaByte(s[i]) {
					return 0, Tz{}, false
				}
			}
			if z, ok := findTz(s); ok {
				tz.Hours = z.Hours
				tz.Minutes = z.Minutes
				tz.West = z.West
			}
		}
	}

	return addTzOffset(makeTime(tm), tz.West, tz.Hours, tz.Minutes), tz, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// dateLaxRe accepts dates with comments and loose whitespace anywhere
// the grammar allows them.
var dateLaxRe = func() *regexp.Regexp {
	const cfws = ` *(?:\(.*\))? *`
	const month = `(Jan|January|Feb|February|Mar|March|Apr|April|May|Jun|June` +
		`|Jul|July|Aug|August|Sep|September|Oct|October|Nov|November|Dec|December)`
	return regexp.MustCompile(
		`^` + cfws +
			`(?:[A-Za-z]+` + cfws + `, *)?` +
			cfws + `([0-9]{1,2}) ` +
			cfws + month +
			cfws + `([0-9]{2,4}) ` +
			cfws + `([0-9]{1,2})` +
			`:` + cfws + `([0-9]{1,2})` +
			cfws +
			`(?::` + cfws + `([0-9]{1,2}))?` +
			cfws +
			`(?:([+-][0-9]{4})|([A-Za-z]+))?`)
}()

const (
	laxDay = iota + 1
	laxMonth
	laxYear
	laxHour
	laxMinute
	laxSecond
	laxTz
	laxTzObs
)

// ParseDate parses a Date header of the form
// "[ weekday , ] day month year hour:minute[:second] [ timezone ]" into
// Unix seconds, along with the zone it carried. A missing or unknown
// zone is treated as +0000.
func ParseDate(s string) (int64, Tz, error) {
	if t, tz, ok := parseDateStrict(s); ok {
		return t, tz, nil
	}

	m := dateLaxRe.FindStringSubmatch(s)
	if m == nil {
		return -1, Tz{}, fmt.Errorf("cannot parse date %q", s)
	}

	var tm clock

	tm.mday, _ = parseSmallUint(m[laxDay])
	if tm.mday > 31 {
		return -1, Tz{}, fmt.Errorf("cannot parse date %q", s)
	}

	tm.mon = checkMonth(m[laxMonth])

	tm.year, _ = parseSmallUint(m[laxYear])
	if tm.year < 50 {
		tm.year += 100
	} else if tm.year >= 1900 {
		tm.year -= 1900
	}

	tm.hour, _ = parseSmallUint(m[laxHour])
	tm.min, _ = parseSmallUint(m[laxMinute])
	if m[laxSecond] != "" {
		tm.sec, _ = parseSmallUint(m[laxSecond])
	}
	if tm.hour > 23 || tm.min > 59 || tm.sec > 60 {
		return -1, Tz{}, fmt.Errorf("cannot parse date %q", s)
	}

	var tz Tz
	if m[laxTz] != "" {
		z := m[laxTz]
		tz.West = z[0] == '-'
		tz.Hours = int(z[1]-'0')*10 + int(z[2]-'0')
		tz.Minutes = int(z[3]-'0')*10 + int(z[4]-'0')
	} else if m[laxTzObs] != "" {
		if z, ok := findTz(m[laxTzObs]); ok {
			tz.Hours = z.Hours
			tz.Minutes = z.Minutes
			tz.West = z.West
		}
	}

	return addTzOffset(makeTime(tm), tz.West, tz.Hours, tz.Minutes), tz, nil
}
