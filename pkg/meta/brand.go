package meta

import "strings"

// DefaultBrand is used when the camera make matches no known manufacturer.
const DefaultBrand = "DEFAULT"

// brands is searched in order; the first substring match wins.
var brands = []struct {
	needles []string
	key     string
}{
	{[]string{"canon"}, "CANON"},
	{[]string{"nikon"}, "NIKON"},
	{[]string{"fujifilm", "fuji"}, "FUJIFILM"},
	{[]string{"sony"}, "SONY"},
	{[]string{"leica"}, "LEICA"},
	{[]string{"hasselblad"}, "HASSELBLAD"},
	{[]string{"olympus", "om digital"}, "OLYMPUS"},
	{[]string{"panasonic", "lumix"}, "PANASONIC"},
	{[]string{"google", "pixel"}, "GOOGLE"},
	{[]string{"apple", "iphone"}, "APPLE"},
}

// Brand maps a camera make to a logo key.
func Brand(cameraMake string) string {
	m := strings.ToLower(cameraMake)
	if strings.TrimSpace(m) == "" {
		return DefaultBrand
	}
	for _, b := range brands {
		for _, n := range b.needles {
			if strings.Contains(m, n) {
				return b.key
			}
		}
	}
	return DefaultBrand
}
