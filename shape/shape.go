// Package shape defines the markup shapes placed on document pages during a
// takeoff: filled rectangles marking devices and stroked lines marking wire
// runs. Geometry is kept in page-local coordinates. A shape exists in two
// forms: the in-memory form used by the canvas and ledger, and the flat
// Descriptor form that crosses the mutation worker boundary.
package shape

import (
	"math"

	"github.com/google/uuid"
)

// Kind distinguishes the two markup shapes.
type Kind int

const (
	KindRect Kind = iota
	KindLine
)

func (k Kind) String() string {
	switch k {
	case KindRect:
		return "rect"
	case KindLine:
		return "line"
	}
	return "unknown"
}

// PageUnassigned marks a shape that has not been committed to a page yet
// (templates in progress).
const PageUnassigned = -1

// Point is a position in page-local coordinates.
type Point struct {
	X, Y float64
}

// Color is an RGB triple with fractional components in [0, 1]. Alpha is kept
// for on-screen display only and never crosses the worker boundary.
type Color struct {
	R, G, B float64
	A       float64
}

// Clamped returns the color with each of R, G, B forced into [0, 1].
func (c Color) Clamped() Color {
	return Color{
		R: clamp01(c.R),
		G: clamp01(c.G),
		B: clamp01(c.B),
		A: c.A,
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// Rect is an axis-aligned rectangle. Committed rectangles are stored
// normalized (X0 <= X1, Y0 <= Y1).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// RectFromCorners builds a normalized rectangle from two opposite corners.
func RectFromCorners(a, b Point) Rect {
	return Rect{
		X0: math.Min(a.X, b.X),
		Y0: math.Min(a.Y, b.Y),
		X1: math.Max(a.X, b.X),
		Y1: math.Max(a.Y, b.Y),
	}
}

// Normalized returns the rectangle with corners reordered so that X0 <= X1
// and Y0 <= Y1.
func (r Rect) Normalized() Rect {
	return RectFromCorners(Point{r.X0, r.Y0}, Point{r.X1, r.Y1})
}

// Width returns X1-X0 for a normalized rectangle.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns Y1-Y0 for a normalized rectangle.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// IsEmpty reports whether the rectangle has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Intersect returns the intersection of two normalized rectangles. The
// result may be empty.
func (r Rect) Intersect(o Rect) Rect {
	res := Rect{
		X0: math.Max(r.X0, o.X0),
		Y0: math.Max(r.Y0, o.Y0),
		X1: math.Min(r.X1, o.X1),
		Y1: math.Min(r.Y1, o.Y1),
	}
	if res.X0 > res.X1 || res.Y0 > res.Y1 {
		return Rect{X0: res.X0, Y0: res.Y0, X1: res.X0, Y1: res.Y0}
	}
	return res
}

// MovedTo returns the rectangle with the same size and its first corner
// placed at p. Used for template preview tracking.
func (r Rect) MovedTo(p Point) Rect {
	return Rect{X0: p.X, Y0: p.Y, X1: p.X + r.Width(), Y1: p.Y + r.Height()}
}

// Line is a straight segment between two endpoints.
type Line struct {
	X1, Y1, X2, Y2 float64
}

// IsDegenerate reports whether the two endpoints coincide.
func (l Line) IsDegenerate() bool {
	return l.X1 == l.X2 && l.Y1 == l.Y2
}

// MovedTo returns the line translated so that its first endpoint is at p,
// preserving direction and length.
func (l Line) MovedTo(p Point) Line {
	dx, dy := l.X2-l.X1, l.Y2-l.Y1
	return Line{X1: p.X, Y1: p.Y, X2: p.X + dx, Y2: p.Y + dy}
}

// Shape is one markup mark on one page. A committed shape always has
// Page >= 0 and belongs to exactly one ledger entry. Shapes survive page
// navigation; visibility filtering is the display layer's concern.
type Shape struct {
	ID          uuid.UUID
	Kind        Kind
	Page        int
	Rect        Rect
	Line        Line
	Color       Color
	StrokeWidth float64

	deleted bool
}

// NewRect creates an uncommitted rectangle shape.
func NewRect(r Rect, c Color) *Shape {
	return &Shape{
		ID:    uuid.New(),
		Kind:  KindRect,
		Page:  PageUnassigned,
		Rect:  r.Normalized(),
		Color: c,
	}
}

// NewLine creates an uncommitted line shape.
func NewLine(l Line, c Color, width float64) *Shape {
	return &Shape{
		ID:          uuid.New(),
		Kind:        KindLine,
		Page:        PageUnassigned,
		Line:        l,
		Color:       c,
		StrokeWidth: width,
	}
}

// MarkDeleted flags the shape as removed from the display. Entry counts use
// this as the lazy liveness check.
func (s *Shape) MarkDeleted() { s.deleted = true }

// Deleted reports whether the shape has been removed from the display.
func (s *Shape) Deleted() bool { return s.deleted }

// Revive clears the deleted flag. Used when a moved shape is re-adopted.
func (s *Shape) Revive() { s.deleted = false }

// Descriptor is the serializable form of a shape used in the mutation
// request and the project file. Field names match the worker bundle format.
type Descriptor struct {
	ID    string     `json:"id"`
	Kind  string     `json:"kind"`
	Page  int        `json:"page"`
	Rect  [4]float64 `json:"rect"`
	P1    [2]float64 `json:"p1"`
	P2    [2]float64 `json:"p2"`
	Color [3]float64 `json:"color"`
	Width float64    `json:"width,omitempty"`
}

// Descriptor returns the flat wire form of the shape. Rectangle geometry is
// normalized; color is clamped to [0, 1].
func (s *Shape) Descriptor() Descriptor {
	c := s.Color.Clamped()
	d := Descriptor{
		ID:    s.ID.String(),
		Kind:  s.Kind.String(),
		Page:  s.Page,
		Color: [3]float64{c.R, c.G, c.B},
	}
	switch s.Kind {
	case KindRect:
		r := s.Rect.Normalized()
		d.Rect = [4]float64{r.X0, r.Y0, r.X1, r.Y1}
	case KindLine:
		d.P1 = [2]float64{s.Line.X1, s.Line.Y1}
		d.P2 = [2]float64{s.Line.X2, s.Line.Y2}
		d.Width = s.StrokeWidth
	}
	return d
}
