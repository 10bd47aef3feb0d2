package meta

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var exifDateFormats = []string{
	"2006:01:02 15:04:05",
	"2006:01:02 15:04:05Z07:00",
	"2006:01:02 15:04:05.999999999",
	"2006:01:02 15:04:05.999999999Z07:00",
	"2006:01:02 15:04",
}

// focalLength turns "24.0 mm" into "24mm".
func focalLength(s string) string {
	// exiftool may append "(35 mm equivalent: ...)"
	if i := strings.Index(s, "("); i > 0 {
		s = s[:i]
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return ""
	}

	num, unit := s, ""
	if strings.HasSuffix(strings.ToLower(s), "mm") {
		num, unit = s[:len(s)-2], "mm"
	}
	if strings.Contains(num, ".") {
		num = strings.TrimRight(num, "0")
		num = strings.TrimSuffix(num, ".")
	}
	if unit == "" {
		if _, err := strconv.ParseFloat(num, 64); err == nil {
			unit = "mm"
		}
	}
	return num + unit
}

func fNumber(s string) string {
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "f/") || strings.HasPrefix(s, "F/") {
		return s
	}
	return "f/" + s
}

func iso(s string) string {
	if s == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToUpper(s), "ISO") {
		return s
	}
	return "ISO" + s
}

func exposure(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// numeric extractors report fractions of a second as decimals
	if f, ok := reciprocal(s); ok {
		s = f
	}
	if strings.HasSuffix(s, "s") {
		return s
	}
	return s + "s"
}

// reciprocal turns a decimal such as "0.033" into "1/30" when 1/n rounds to
// the digits given. Other values, like "0.4", are not fractions of that form.
func reciprocal(s string) (string, bool) {
	_, frac, ok := strings.Cut(s, ".")
	if !ok || frac == "" {
		return "", false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v >= 1 {
		return "", false
	}
	n := math.Round(1 / v)
	if n < 2 {
		return "", false
	}
	tol := 0.5*math.Pow(10, -float64(len(frac))) + 1e-12
	if math.Abs(v-1/n) > tol {
		return "", false
	}
	return fmt.Sprintf("1/%d", int(n)), true
}

// displayDate returns "" when s is empty.
func displayDate(s string) string {
	if s == "" {
		return ""
	}
	for _, f := range exifDateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t.Format(DisplayDateFormat)
		}
	}

	// unparseable: reformat textually
	date, clock, _ := strings.Cut(s, " ")
	date = strings.ReplaceAll(date, ":", ".")
	date = strings.ReplaceAll(date, "-", ".")
	if len(clock) > 5 {
		clock = clock[:5]
	}
	if clock == "" {
		return date
	}
	return date + " " + clock
}
