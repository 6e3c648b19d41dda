package domain

import (
	"fmt"
	"strings"
)

type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
	AspectPhoto     AspectRatio = "4:3"
	AspectWide      AspectRatio = "3:4"

	DefaultAspectRatio = AspectSquare
)

// AspectRatioOption pairs a ratio with the label shown in selectors.
type AspectRatioOption struct {
	Value AspectRatio `json:"value"`
	Label string      `json:"label"`
}

var aspectRatioOptions = []AspectRatioOption{
	{Value: AspectSquare, Label: "Square (1:1)"},
	{Value: AspectPortrait, Label: "Portrait (9:16)"},
	{Value: AspectLandscape, Label: "Landscape (16:9)"},
	{Value: AspectPhoto, Label: "Photo (4:3)"},
	{Value: AspectWide, Label: "Wide (3:4)"},
}

// AspectRatioOptions returns the selectable ratios in display order.
func AspectRatioOptions() []AspectRatioOption {
	out := make([]AspectRatioOption, len(aspectRatioOptions))
	copy(out, aspectRatioOptions)
	return out
}

// ParseAspectRatio accepts one of the five supported ratios. An empty value
// selects DefaultAspectRatio.
func ParseAspectRatio(raw string) (AspectRatio, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return DefaultAspectRatio, nil
	}
	for _, opt := range aspectRatioOptions {
		if string(opt.Value) == value {
			return opt.Value, nil
		}
	}
	return "", &ValidationError{Message: fmt.Sprintf("Unsupported aspect ratio %q.", value), Err: ErrUnsupportedAspect}
}

func (a AspectRatio) Valid() bool {
	for _, opt := range aspectRatioOptions {
		if opt.Value == a {
			return true
		}
	}
	return false
}

func (a AspectRatio) Label() string {
	for _, opt := range aspectRatioOptions {
		if opt.Value == a {
			return opt.Label
		}
	}
	return string(a)
}
