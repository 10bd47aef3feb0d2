package meta

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// UnresolvedLocation labels photos that carry GPS tags we could not decode.
var UnresolvedLocation = "Location Data"

// ErrGPS is returned when GPS tags are present but cannot be resolved.
var ErrGPS = errors.New("unresolvable gps data")

var (
	numberRE = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?(?:/\d+(?:\.\d+)?)?`)
	hemiRE   = regexp.MustCompile(`(?i)(?:^|[^a-z])([NSEW])(?:[^a-z]|$)`)
)

func hasGPS(t Tags) bool {
	return t.Get("GPSLatitude", "GPSLongitude", "GPSPosition") != ""
}

// Coordinates resolves signed decimal latitude and longitude from GPS tags.
func Coordinates(t Tags) (lat, lon float64, err error) {
	latS, lonS := t.Get("GPSLatitude"), t.Get("GPSLongitude")
	if latS == "" || lonS == "" {
		return position(t.Get("GPSPosition"))
	}

	lat, err = coord(latS, t.Get("GPSLatitudeRef"))
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lon, err = coord(lonS, t.Get("GPSLongitudeRef"))
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	return lat, lon, validate(lat, lon)
}

// position parses a textual "lat, lon" description.
func position(s string) (float64, float64, error) {
	if s == "" {
		return 0, 0, ErrGPS
	}

	var parts []string
	if strings.Contains(s, ",") {
		parts = strings.Split(s, ",")
	} else {
		parts = strings.Fields(s)
	}
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("position %q: %w", s, ErrGPS)
	}

	lat, err := coord(parts[0], "")
	if err != nil {
		return 0, 0, fmt.Errorf("position latitude: %w", err)
	}
	lon, err := coord(parts[1], "")
	if err != nil {
		return 0, 0, fmt.Errorf("position longitude: %w", err)
	}
	return lat, lon, validate(lat, lon)
}

// coord converts a DMS triple, a degree/minute pair, or a decimal into signed degrees.
func coord(value, ref string) (float64, error) {
	tokens := numberRE.FindAllString(value, -1)
	if len(tokens) == 0 {
		return 0, fmt.Errorf("%q: %w", value, ErrGPS)
	}

	vs := make([]float64, 0, 3)
	for _, tok := range tokens {
		v, err := rational(tok)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", value, err)
		}
		vs = append(vs, v)
		if len(vs) == 3 {
			break
		}
	}

	neg := vs[0] < 0 || strings.HasPrefix(strings.TrimSpace(value), "-")
	deg := math.Abs(vs[0])
	if len(vs) > 1 {
		deg += vs[1] / 60
	}
	if len(vs) > 2 {
		deg += vs[2] / 3600
	}

	switch hemisphere(value, ref) {
	case 'S', 'W':
		neg = true
	case 'N', 'E':
		neg = false
	}
	if neg {
		deg = -deg
	}
	return deg, nil
}

// hemisphere prefers the explicit reference tag over a letter embedded in the value.
func hemisphere(value, ref string) byte {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref != "" {
		switch ref[0] {
		case 'N', 'S', 'E', 'W':
			return ref[0]
		}
	}
	m := hemiRE.FindAllStringSubmatch(value, -1)
	if len(m) == 0 {
		return 0
	}
	return strings.ToUpper(m[len(m)-1][1])[0]
}

func rational(tok string) (float64, error) {
	num, den, ok := strings.Cut(tok, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", tok, err)
	}
	if !ok {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", tok, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator in %q: %w", tok, ErrGPS)
	}
	return n / d, nil
}

func validate(lat, lon float64) error {
	if math.Abs(lat) > 90 || math.Abs(lon) > 180 || math.IsNaN(lat) || math.IsNaN(lon) {
		return fmt.Errorf("out of range (%f, %f): %w", lat, lon, ErrGPS)
	}
	return nil
}

// CoordLabel formats coordinates for display.
func CoordLabel(lat, lon float64) string {
	return fmt.Sprintf("%.2f, %.2f", lat, lon)
}
