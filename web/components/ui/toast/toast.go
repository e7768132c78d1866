// Package toast renders dismissible notification fragments for HTMX swaps.
package toast

import twmerge "github.com/Oudwins/tailwind-merge-go"

type Variant string

const (
	VariantDefault Variant = "default"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
	VariantInfo    Variant = "info"
)

type Position string

const (
	PositionTopRight    Position = "top-right"
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
)

type Props struct {
	ID          string
	Title       string
	Description string
	Variant     Variant
	Position    Position
	// Duration in milliseconds; 0 keeps the toast until dismissed.
	Duration    int
	Dismissible bool
	Icon        bool
}

// ParseVariant maps a form value to a Variant. Unknown values are success.
func ParseVariant(s string) Variant {
	switch s {
	case "error", "destructive":
		return VariantError
	case "warning":
		return VariantWarning
	case "info":
		return VariantInfo
	case "default":
		return VariantDefault
	default:
		return VariantSuccess
	}
}

// ParsePosition maps a form value to a Position, bottom right by default.
func ParsePosition(s string) Position {
	switch Position(s) {
	case PositionTopRight:
		return PositionTopRight
	case PositionBottomLeft:
		return PositionBottomLeft
	default:
		return PositionBottomRight
	}
}

func (p Props) id() string {
	if p.ID == "" {
		return "toast"
	}
	return p.ID
}

func (p Props) class() string {
	return twmerge.Merge(
		"fixed z-50 w-80 rounded-lg border border-gray-200 bg-white p-4 shadow-lg",
		positionClass(p.Position),
		variantClass(p.Variant),
	)
}

func variantClass(v Variant) string {
	switch v {
	case VariantError:
		return "border-red-300 bg-red-50 text-red-900"
	case VariantWarning:
		return "border-yellow-300 bg-yellow-50 text-yellow-900"
	case VariantInfo:
		return "border-blue-300 bg-blue-50 text-blue-900"
	case VariantSuccess:
		return "border-green-300 bg-green-50 text-green-900"
	default:
		return ""
	}
}

func positionClass(p Position) string {
	switch p {
	case PositionTopRight:
		return "top-4 right-4"
	case PositionBottomLeft:
		return "bottom-4 left-4"
	default:
		return "bottom-4 right-4"
	}
}

func icon(v Variant) string {
	switch v {
	case VariantError:
		return "✕"
	case VariantWarning:
		return "!"
	case VariantInfo:
		return "i"
	default:
		return "✓"
	}
}
