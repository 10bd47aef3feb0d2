// Package layout positions metadata fields inside the banner and decides how large it has to be.
package layout

import (
	"fmt"
	"strings"
)

// FieldID identifies one of the fixed metadata slots.
type FieldID int

const (
	FieldModel FieldID = iota
	FieldLens
	FieldFocalLength
	FieldFNumber
	FieldISO
	FieldExposureTime
	FieldDate
	FieldGPS

	// NumFields is the number of slots; it is not a field.
	NumFields
)

var fieldNames = [NumFields]string{"model", "lens", "focal_length", "f_number", "iso", "exposure_time", "date", "gps"}

func (f FieldID) String() string {
	if f < 0 || f >= NumFields {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField returns the FieldID for a name such as "focal_length".
func ParseField(s string) (FieldID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range fieldNames {
		if n == s {
			return FieldID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

// Side places a slot within the banner.
type Side int

const (
	Off Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "off"
	}
}

// ParseSide accepts "left", "right" and "off".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "off", "", "hidden":
		return Off, nil
	}
	return Off, fmt.Errorf("unknown side %q", s)
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Slot is the placement of one field.
type Slot struct {
	ID    FieldID
	Label string
	Text  string
	Side  Side
	// Line is 1 (bold, main size) or 2 (regular, sub size).
	Line  int
	Order int
}

// Visible reports whether the slot takes part in layout and carries text.
func (s Slot) Visible() bool {
	return s.Side != Off && strings.TrimSpace(s.Text) != ""
}
