// Package style defines the immutable-by-value box-model and flex properties
// attached to every tree node. A Style is a plain value: it is copied
// wholesale, compared with ==, and never shared by pointer between trees.
package style

// Unit describes how a Dimension's value is interpreted.
type Unit uint8

const (
	// UnitUndefined leaves the dimension unset; layout treats it as auto.
	UnitUndefined Unit = iota
	// UnitPoint is an absolute value in device-independent pixels.
	UnitPoint
	// UnitPercent is a percentage of the parent's corresponding dimension.
	UnitPercent
	// UnitAuto lets the layout engine derive the value from content.
	UnitAuto
)

// Dimension is a single length value with its interpretation unit.
type Dimension struct {
	Unit  Unit
	Value float64
}

// Pt returns an absolute pixel dimension.
func Pt(value float64) Dimension {
	return Dimension{Unit: UnitPoint, Value: value}
}

// Pct returns a percentage dimension (0–100).
func Pct(value float64) Dimension {
	return Dimension{Unit: UnitPercent, Value: value}
}

// Auto returns a content-derived dimension.
func Auto() Dimension {
	return Dimension{Unit: UnitAuto}
}

// IsSet reports whether the dimension carries a usable value.
func (d Dimension) IsSet() bool {
	return d.Unit != UnitUndefined
}

// EdgeInsets holds one dimension per box edge, used for margin, padding and
// absolute-position offsets.
type EdgeInsets struct {
	Left   Dimension
	Top    Dimension
	Right  Dimension
	Bottom Dimension
}

// UniformInsets returns insets with the same pixel value on every edge.
func UniformInsets(value float64) EdgeInsets {
	d := Pt(value)
	return EdgeInsets{Left: d, Top: d, Right: d, Bottom: d}
}

// FlexDirection controls the main axis of a flex container.
type FlexDirection uint8

const (
	Column FlexDirection = iota
	ColumnReverse
	Row
	RowReverse
)

// Wrap controls whether flex lines wrap.
type Wrap uint8

const (
	NoWrap Wrap = iota
	WrapLines
	WrapReverse
)

// Justify distributes children along the main axis.
type Justify uint8

const (
	JustifyStart Justify = iota
	JustifyCenter
	JustifyEnd
	JustifySpaceBetween
	JustifySpaceAround
)

// Align positions children (or lines) along the cross axis.
type Align uint8

const (
	AlignAuto Align = iota
	AlignStart
	AlignCenter
	AlignEnd
	AlignStretch
	AlignBaseline
	AlignSpaceBetween
	AlignSpaceAround
)

// PositionType switches a node between flow and absolute positioning.
type PositionType uint8

const (
	Relative PositionType = iota
	Absolute
)

// Display removes a node (and its subtree) from layout entirely.
type Display uint8

const (
	DisplayFlex Display = iota
	DisplayNone
)

// Visibility controls drawing without affecting layout, except Gone which
// behaves like DisplayNone.
type Visibility uint8

const (
	Visible Visibility = iota
	Invisible
	Gone
)

// Color is a 32-bit ARGB color value.
type Color uint32

// Decoration carries the visual (non-layout) box properties. A zero
// Decoration means the node draws nothing of its own, which is one of the
// conditions for flattening.
type Decoration struct {
	BackgroundColor Color
	BorderColor     Color
	BorderWidth     float64
	CornerRadius    float64
	Opacity         float64 // 0 means unset (fully opaque)
}

// IsZero reports whether the decoration has no visual effect.
func (d Decoration) IsZero() bool {
	return d == Decoration{}
}

// Style is the full box-model and flex description of one node.
//
// Every field is a comparable value type so two styles can be compared with
// ==; the diff engine relies on this for whole-value style comparison.
type Style struct {
	Width     Dimension
	Height    Dimension
	MinWidth  Dimension
	MinHeight Dimension
	MaxWidth  Dimension
	MaxHeight Dimension

	Margin  EdgeInsets
	Padding EdgeInsets

	FlexGrow   float64
	FlexShrink float64
	FlexBasis  Dimension

	Direction    FlexDirection
	Wrap         Wrap
	Justify      Justify
	AlignItems   Align
	AlignSelf    Align
	AlignContent Align

	Position PositionType
	// Inset holds the left/top/right/bottom offsets for absolute nodes.
	Inset EdgeInsets

	Display    Display
	Visibility Visibility

	// AspectRatio of width to height; 0 means unset.
	AspectRatio float64

	Decoration Decoration
}

// Default returns the zero-value style with the engine defaults spelled out:
// column direction, no wrap, stretch cross-axis, relative flow positioning.
func Default() Style {
	return Style{
		AlignItems: AlignStretch,
	}
}

// Equal compares two styles by full value equality. Any field difference
// marks the whole style as changed; the patch granularity trade-off is
// deliberate.
func (s Style) Equal(other Style) bool {
	return s == other
}

// Hidden reports whether the node is removed from layout.
func (s Style) Hidden() bool {
	return s.Display == DisplayNone || s.Visibility == Gone
}
