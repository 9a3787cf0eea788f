package core

import (
	"encoding/json"
	"strings"
)

// Color is a symbolic category color drawn from a fixed palette.
type Color string

const (
	Red    Color = "red"
	Green  Color = "green"
	Blue   Color = "blue"
	Yellow Color = "yellow"
	Purple Color = "purple"
	Orange Color = "orange"
	Indigo Color = "indigo"

	// DefaultColor is used for new categories without a color and for
	// transactions whose category name no longer exists.
	DefaultColor = Blue

	legacyColorPrefix = "expense-"
)

var colorHex = map[Color]string{
	Red:    "#ff6b6b",
	Green:  "#51cf66",
	Blue:   "#339af0",
	Yellow: "#fcc419",
	Purple: "#9b87f5",
	Orange: "#ff922b",
	Indigo: "#5c7cfa",
}

// Palette returns the colors in display order.
func Palette() []Color {
	return []Color{Red, Green, Blue, Yellow, Purple, Orange, Indigo}
}

func (c Color) IsValid() bool {
	_, ok := colorHex[c]
	return ok
}

// Hex returns the chart color for c, falling back to the default color.
func (c Color) Hex() string {
	if h, ok := colorHex[c]; ok {
		return h
	}
	return colorHex[DefaultColor]
}

// NormalizeColor trims, lowercases and strips the legacy "expense-" prefix.
// An empty input yields DefaultColor.
func NormalizeColor(s string) Color {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, legacyColorPrefix)
	if s == "" {
		return DefaultColor
	}
	return Color(s)
}

func (c *Color) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = NormalizeColor(s)
	return nil
}
