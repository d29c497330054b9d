// Package session tracks the identity of the loaded source document: the
// original bytes captured once at load time, the page count, and per-page
// bounds. The original bytes are never mutated in place; every export works
// on a fresh copy.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"github.com/wudi/takeoffkit/shape"
)

// ErrNotLoaded is returned by accessors before a successful Load.
var ErrNotLoaded = errors.New("session: no document loaded")

// ErrPageRange is returned for page indices outside the document.
var ErrPageRange = errors.New("session: page index out of range")

// letterBounds is the fallback when a malformed page carries no MediaBox
// anywhere in its ancestry.
var letterBounds = shape.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}

// Session is the loaded document. Immutable after Load; safe to share.
type Session struct {
	path     string
	original []byte
	bounds   []shape.Rect
}

// Load opens the document at path. On failure the returned error describes
// the cause and no session is created, so the caller's prior state stays
// intact.
func Load(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}
	s, err := LoadBytes(raw)
	if err != nil {
		return nil, err
	}
	s.path = path
	return s, nil
}

// LoadBytes opens a document already held in memory. The byte slice is
// retained; the caller must not modify it afterwards.
func LoadBytes(raw []byte) (*Session, error) {
	data, err := pdf.Read(bytes.NewReader(raw), nil)
	if err != nil {
		return nil, fmt.Errorf("session: open document: %w", err)
	}
	pages, err := pagetree.FindPages(data)
	if err != nil {
		return nil, fmt.Errorf("session: read page tree: %w", err)
	}
	if len(pages) == 0 {
		return nil, errors.New("session: document has no pages")
	}

	s := &Session{original: raw}
	for i, ref := range pages {
		b, err := pageBounds(data, ref)
		if err != nil {
			return nil, fmt.Errorf("session: page %d bounds: %w", i, err)
		}
		s.bounds = append(s.bounds, b)
	}
	return s, nil
}

// pageBounds resolves the MediaBox of a page, walking the Parent chain for
// inherited values.
func pageBounds(data *pdf.Data, ref pdf.Reference) (shape.Rect, error) {
	node, err := pdf.GetDict(data, ref)
	if err != nil {
		return shape.Rect{}, err
	}
	for depth := 0; node != nil && depth < 32; depth++ {
		if node["MediaBox"] != nil {
			box, err := pdf.GetRectangle(data, node["MediaBox"])
			if err != nil {
				return shape.Rect{}, err
			}
			if box != nil && !box.IsZero() {
				return shape.Rect{X0: box.LLx, Y0: box.LLy, X1: box.URx, Y1: box.URy}.Normalized(), nil
			}
		}
		parent := node["Parent"]
		if parent == nil {
			break
		}
		node, err = pdf.GetDict(data, parent)
		if err != nil {
			return shape.Rect{}, err
		}
	}
	return letterBounds, nil
}

// Path returns the load path, or "" for byte-loaded sessions.
func (s *Session) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// PageCount returns the number of pages.
func (s *Session) PageCount() int {
	if s == nil {
		return 0
	}
	return len(s.bounds)
}

// PageBounds returns the page-local bounds of page i.
func (s *Session) PageBounds(i int) (shape.Rect, error) {
	if s == nil {
		return shape.Rect{}, ErrNotLoaded
	}
	if i < 0 || i >= len(s.bounds) {
		return shape.Rect{}, fmt.Errorf("%w: %d", ErrPageRange, i)
	}
	return s.bounds[i], nil
}

// Original returns a copy of the bytes captured at load time.
func (s *Session) Original() []byte {
	if s == nil {
		return nil
	}
	return append([]byte(nil), s.original...)
}

// SpreadsheetPath is the export target for the spreadsheet: the document
// path with its extension replaced by .xlsx.
func (s *Session) SpreadsheetPath() string {
	if s == nil || s.path == "" {
		return ""
	}
	ext := filepath.Ext(s.path)
	return strings.TrimSuffix(s.path, ext) + ".xlsx"
}
