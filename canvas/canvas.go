// Package canvas implements the interaction state machine that turns pointer
// events over a displayed page into committed markup shapes.
//
// The machine supports repeated stamping: the first drag defines a template
// shape, after which every primary-button press stamps a copy of the template
// at the pointer position without requiring a new drag. Moving an existing
// shape reuses the same template machinery - the moved shape becomes the
// template and the next primary press commits it at the followed position.
//
// The package is toolkit-agnostic: pointer events are plain values, shape
// creation and deletion are reported through registered callbacks, and hit
// testing is delegated to the display layer.
package canvas

import (
	"github.com/wudi/takeoffkit/shape"
)

// Button identifies the pointer button of an event.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// State is the interaction mode of the machine.
type State int

const (
	// StateIdle: drawing disabled, pointer events pass through.
	StateIdle State = iota
	// StateArmed: drawing enabled, waiting for the first press.
	StateArmed
	// StateDefining: primary button held, template geometry being dragged.
	StateDefining
	// StateReady: a template exists and follows the pointer; each press
	// stamps a copy.
	StateReady
	// StateMoving: an existing shape detached from its entry follows the
	// pointer for relocation.
	StateMoving
)

// HitFunc reports the topmost committed shape at a point, or nil. Supplied
// by the display layer.
type HitFunc func(shape.Point) *shape.Shape

// Result is returned from PointerDown. When Menu is non-nil the caller must
// present a context action set with exactly two actions, Move and Delete,
// and route the choice to MoveShape or DeleteShape.
type Result struct {
	Menu *shape.Shape
}

// Machine is the annotation canvas state machine. All methods must be called
// from the single interactive goroutine.
type Machine struct {
	state State

	kind        shape.Kind
	color       shape.Color
	strokeWidth float64
	page        int

	anchor   shape.Point
	tmplRect shape.Rect
	tmplLine shape.Line
	moving   *shape.Shape

	hit HitFunc

	created []func(*shape.Shape)
	deleted []func(*shape.Shape)
}

// NewMachine creates an idle machine. hit may be nil, in which case
// secondary presses always cancel drawing.
func NewMachine(hit HitFunc) *Machine {
	return &Machine{
		hit:         hit,
		kind:        shape.KindRect,
		strokeWidth: 2,
		page:        shape.PageUnassigned,
	}
}

// State returns the current interaction mode.
func (m *Machine) State() State { return m.state }

// OnShapeCreated registers a callback invoked whenever a shape is committed,
// stamped, or re-adopted after a move.
func (m *Machine) OnShapeCreated(fn func(*shape.Shape)) {
	m.created = append(m.created, fn)
}

// OnShapeDeleted registers a callback invoked whenever a shape is removed
// from the display, including detachment at the start of a move.
func (m *Machine) OnShapeDeleted(fn func(*shape.Shape)) {
	m.deleted = append(m.deleted, fn)
}

// SetPage records the currently displayed page; committed shapes are tagged
// with it.
func (m *Machine) SetPage(page int) { m.page = page }

// SetShapeKind selects rectangle or line drawing. Takes effect for the next
// template; an existing template keeps its kind.
func (m *Machine) SetShapeKind(k shape.Kind) { m.kind = k }

// SetColor sets the color applied to newly committed shapes.
func (m *Machine) SetColor(c shape.Color) { m.color = c }

// SetStrokeWidth sets the stroke width for line shapes.
func (m *Machine) SetStrokeWidth(w float64) { m.strokeWidth = w }

// EnableDrawing arms the machine. With no template defined the machine
// waits for the first press; an existing template stays usable.
func (m *Machine) EnableDrawing() {
	if m.state == StateIdle {
		m.state = StateArmed
	}
}

// DisableDrawing discards any uncommitted template and returns to Idle. A
// shape in mid-move is discarded as deleted.
func (m *Machine) DisableDrawing() {
	if m.state == StateMoving && m.moving != nil {
		m.discardMoving()
	}
	m.moving = nil
	m.state = StateIdle
}

// Template returns the current template geometry for preview rendering. The
// bool result is false when no template is visible.
func (m *Machine) Template() (shape.Kind, shape.Rect, shape.Line, bool) {
	switch m.state {
	case StateDefining, StateReady, StateMoving:
		return m.kind, m.tmplRect, m.tmplLine, true
	}
	return m.kind, shape.Rect{}, shape.Line{}, false
}

// PointerDown feeds a button press at p into the machine.
func (m *Machine) PointerDown(p shape.Point, btn Button) Result {
	switch btn {
	case ButtonPrimary:
		m.primaryDown(p)
	case ButtonSecondary:
		return m.secondaryDown(p)
	}
	return Result{}
}

func (m *Machine) primaryDown(p shape.Point) {
	switch m.state {
	case StateArmed:
		m.anchor = p
		m.tmplRect = shape.RectFromCorners(p, p)
		m.tmplLine = shape.Line{X1: p.X, Y1: p.Y, X2: p.X, Y2: p.Y}
		m.state = StateDefining

	case StateReady:
		// The press point is authoritative even if no motion event preceded
		// the press.
		m.PointerMove(p)
		m.emitCreated(m.commitTemplate())

	case StateMoving:
		m.PointerMove(p)
		s := m.moving
		m.moving = nil
		s.Page = m.page
		switch s.Kind {
		case shape.KindRect:
			s.Rect = m.tmplRect.Normalized()
		case shape.KindLine:
			s.Line = m.tmplLine
		}
		s.Revive()
		m.state = StateReady
		m.emitCreated(s)
	}
}

func (m *Machine) secondaryDown(p shape.Point) Result {
	switch m.state {
	case StateMoving:
		m.discardMoving()
		m.moving = nil
		m.state = StateReady
		return Result{}

	case StateArmed, StateDefining, StateReady:
		if m.hit != nil {
			if s := m.hit(p); s != nil {
				return Result{Menu: s}
			}
		}
		// Not on a shape: cancel drawing entirely.
		m.state = StateIdle
		return Result{}
	}

	if m.hit != nil {
		if s := m.hit(p); s != nil {
			return Result{Menu: s}
		}
	}
	return Result{}
}

// PointerMove feeds a motion event at p into the machine.
func (m *Machine) PointerMove(p shape.Point) {
	switch m.state {
	case StateDefining:
		m.tmplRect = shape.RectFromCorners(m.anchor, p)
		m.tmplLine = shape.Line{X1: m.anchor.X, Y1: m.anchor.Y, X2: p.X, Y2: p.Y}

	case StateReady, StateMoving:
		// Template follows the pointer with fixed size and direction.
		m.tmplRect = m.tmplRect.MovedTo(p)
		m.tmplLine = m.tmplLine.MovedTo(p)
	}
}

// PointerUp feeds a button release at p into the machine.
func (m *Machine) PointerUp(p shape.Point, btn Button) {
	if btn != ButtonPrimary || m.state != StateDefining {
		return
	}
	m.PointerMove(p)
	m.state = StateReady
	m.emitCreated(m.commitTemplate())
}

// MoveShape transitions to Moving with s as payload: its geometry and color
// become the active template and drawing mode is force-enabled. The shape is
// detached from its owner, reported through the deleted callbacks.
func (m *Machine) MoveShape(s *shape.Shape) {
	m.kind = s.Kind
	m.color = s.Color
	m.strokeWidth = s.StrokeWidth
	m.tmplRect = s.Rect
	m.tmplLine = s.Line
	m.moving = s
	m.state = StateMoving
	s.MarkDeleted()
	m.emitDeleted(s)
}

// DeleteShape removes s from the display and reports the deletion.
func (m *Machine) DeleteShape(s *shape.Shape) {
	s.MarkDeleted()
	m.emitDeleted(s)
}

// commitTemplate materializes the current template geometry as a new shape
// tagged with the current page. Zero-area rectangles and zero-length lines
// are permitted here; the mutation boundary rejects them.
func (m *Machine) commitTemplate() *shape.Shape {
	var s *shape.Shape
	switch m.kind {
	case shape.KindRect:
		s = shape.NewRect(m.tmplRect, m.color)
	case shape.KindLine:
		s = shape.NewLine(m.tmplLine, m.color, m.strokeWidth)
	}
	s.Page = m.page
	return s
}

func (m *Machine) discardMoving() {
	s := m.moving
	if s == nil {
		return
	}
	s.MarkDeleted()
	m.emitDeleted(s)
}

func (m *Machine) emitCreated(s *shape.Shape) {
	for _, fn := range m.created {
		fn(s)
	}
}

func (m *Machine) emitDeleted(s *shape.Shape) {
	for _, fn := range m.deleted {
		fn(s)
	}
}
