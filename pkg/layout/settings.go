package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tstromberg/framemark/pkg/meta"
)

// Style is the banner background strategy.
type Style int

const (
	White Style = iota
	Black
	Blur
	Adaptive
)

var styleNames = []string{"white", "black", "blur", "adaptive"}

func (s Style) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return fmt.Sprintf("style(%d)", int(s))
	}
	return styleNames[s]
}

// ParseStyle accepts the lower-case style names.
func ParseStyle(s string) (Style, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range styleNames {
		if n == s {
			return Style(i), nil
		}
	}
	return White, fmt.Errorf("unknown style %q", s)
}

func (s Style) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Style) UnmarshalText(b []byte) error {
	v, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// LogoChoice selects the logo: LogoAuto, LogoCustom, or a brand key such as "LEICA".
type LogoChoice string

const (
	LogoAuto   LogoChoice = "auto"
	LogoCustom LogoChoice = "custom"
)

// Settings is an immutable snapshot of everything the user can configure.
// Methods never modify the receiver; they return an updated copy.
type Settings struct {
	Slots         [NumFields]Slot
	Style         Style
	BlurIntensity int
	Logo          LogoChoice
	// CustomLogo holds SVG or raster bytes used when Logo is LogoCustom.
	CustomLogo   []byte
	LogoSide     Side
	AdaptiveText bool
}

// DefaultSettings puts the camera on the left and the exposure triangle on the right.
func DefaultSettings() Settings {
	s := Settings{
		Style:         White,
		BlurIntensity: 40,
		Logo:          LogoAuto,
		LogoSide:      Right,
	}
	s.Slots = [NumFields]Slot{
		FieldModel:        {Label: "Model", Side: Left, Line: 1, Order: 0},
		FieldLens:         {Label: "Lens", Side: Left, Line: 2, Order: 0},
		FieldFocalLength:  {Label: "Focal Length", Side: Right, Line: 1, Order: 3},
		FieldFNumber:      {Label: "Aperture", Side: Right, Line: 1, Order: 2},
		FieldExposureTime: {Label: "Shutter", Side: Right, Line: 1, Order: 1},
		FieldISO:          {Label: "ISO", Side: Right, Line: 1, Order: 0},
		FieldDate:         {Label: "Date", Side: Right, Line: 2, Order: 1},
		FieldGPS:          {Label: "Location", Side: Right, Line: 2, Order: 0},
	}
	for i := range s.Slots {
		s.Slots[i].ID = FieldID(i)
	}
	return s
}

// Slot returns the slot for id.
func (s Settings) Slot(id FieldID) Slot {
	return s.Slots[id]
}

// WithText sets the text of one slot.
func (s Settings) WithText(id FieldID, text string) Settings {
	s.Slots[id].Text = text
	return s
}

// WithMetadata copies display strings from c into the slots.
func (s Settings) WithMetadata(c meta.Capture) Settings {
	s.Slots[FieldModel].Text = c.Model
	s.Slots[FieldLens].Text = c.Lens
	s.Slots[FieldFocalLength].Text = c.FocalLength
	s.Slots[FieldFNumber].Text = c.FNumber
	s.Slots[FieldISO].Text = c.ISO
	s.Slots[FieldExposureTime].Text = c.ExposureTime
	s.Slots[FieldDate].Text = c.DateTime
	s.Slots[FieldGPS].Text = c.GPSLabel
	return s
}

// WithStyle changes the background style.
func (s Settings) WithStyle(st Style) Settings {
	s.Style = st
	return s
}

// WithCustomLogo selects LogoCustom with the given image bytes.
func (s Settings) WithCustomLogo(bs []byte) Settings {
	s.Logo = LogoCustom
	s.CustomLogo = append([]byte(nil), bs...)
	return s
}

// Hide removes a slot from the banner.
func (s Settings) Hide(id FieldID) Settings {
	return s.Move(id, Off, s.Slots[id].Line, 0)
}

// Move relocates a slot to position index of the (side, line) group.
// Orders in both the old and new group are renumbered densely from zero.
func (s Settings) Move(id FieldID, side Side, line, index int) Settings {
	if line != 2 {
		line = 1
	}
	old := s.Slots[id]

	var dest []FieldID
	if side != Off {
		for _, sl := range s.group(side, line, false) {
			if sl.ID != id {
				dest = append(dest, sl.ID)
			}
		}
		if index < 0 {
			index = 0
		}
		if index > len(dest) {
			index = len(dest)
		}
		dest = append(dest[:index], append([]FieldID{id}, dest[index:]...)...)
	}

	s.Slots[id].Side = side
	s.Slots[id].Line = line
	s.Slots[id].Order = 0

	if old.Side != Off {
		for i, sl := range s.group(old.Side, old.Line, false) {
			s.Slots[sl.ID].Order = i
		}
	}
	for i, fid := range dest {
		s.Slots[fid].Order = i
	}
	return s
}

// Group returns the visible slots of a (side, line) group in draw order.
// Order zero is drawn first: nearest the left edge on the left side and
// nearest the right edge on the right side.
func (s Settings) Group(side Side, line int) []Slot {
	return s.group(side, line, true)
}

func (s Settings) group(side Side, line int, visibleOnly bool) []Slot {
	var out []Slot
	for _, sl := range s.Slots {
		if sl.Side != side || sl.Line != line || side == Off {
			continue
		}
		if visibleOnly && !sl.Visible() {
			continue
		}
		out = append(out, sl)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Texts returns the visible texts of a group in draw order.
func (s Settings) Texts(side Side, line int) []string {
	g := s.Group(side, line)
	out := make([]string, 0, len(g))
	for _, sl := range g {
		out = append(out, sl.Text)
	}
	return out
}

// Validate checks slot placement and value ranges.
func (s Settings) Validate() error {
	if s.BlurIntensity < 0 || s.BlurIntensity > 100 {
		return fmt.Errorf("blur intensity %d outside [0,100]", s.BlurIntensity)
	}
	if s.LogoSide != Off && s.LogoSide != Left && s.LogoSide != Right {
		return fmt.Errorf("invalid logo side %d", s.LogoSide)
	}

	seen := map[[3]int]FieldID{}
	for i, sl := range s.Slots {
		if sl.ID != FieldID(i) {
			return fmt.Errorf("slot %d has id %s", i, sl.ID)
		}
		if sl.Side == Off {
			continue
		}
		if sl.Line != 1 && sl.Line != 2 {
			return fmt.Errorf("%s: line %d not in {1,2}", sl.ID, sl.Line)
		}
		if sl.Order < 0 {
			return fmt.Errorf("%s: negative order %d", sl.ID, sl.Order)
		}
		k := [3]int{int(sl.Side), sl.Line, sl.Order}
		if other, ok := seen[k]; ok {
			return fmt.Errorf("%s and %s share %s line %d order %d", other, sl.ID, sl.Side, sl.Line, sl.Order)
		}
		seen[k] = sl.ID
	}
	return nil
}
