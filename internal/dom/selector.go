// Package dom holds the CSS-path selector used by the action layer.
package dom

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tomyan/bopbot/internal/chrome"
)

// Connector joins path segments into a CSS child-combinator path.
const Connector = " > "

// ErrEmptyHierarchy is returned when a selector has no path segments.
var ErrEmptyHierarchy = errors.New("selector hierarchy is empty")

// LabelError reports an invalid selector label.
type LabelError struct {
	Label string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("invalid selector label %q: must be letters and underscores only", e.Label)
}

// Selector is a labelled DOM path. The last segment is the target element.
// It is not safe for concurrent use.
type Selector struct {
	label    string
	segments []string
	css      string
}

// New validates label and segments and returns a selector. The segments slice
// is copied.
func New(label string, segments []string) (*Selector, error) {
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, ErrEmptyHierarchy
	}
	return &Selector{label: label, segments: append([]string(nil), segments...)}, nil
}

// MustNew is New for package-level selector tables. It panics on error.
func MustNew(label string, segments ...string) *Selector {
	s, err := New(label, segments)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateLabel accepts non-empty labels made of letters once underscores
// are removed.
func ValidateLabel(label string) error {
	stripped := strings.ReplaceAll(label, "_", "")
	if stripped == "" {
		return &LabelError{Label: label}
	}
	for _, r := range stripped {
		if !unicode.IsLetter(r) {
			return &LabelError{Label: label}
		}
	}
	return nil
}

// Flatten joins segments with Connector.
func Flatten(segments []string) (string, error) {
	if len(segments) == 0 {
		return "", ErrEmptyHierarchy
	}
	return strings.Join(segments, Connector), nil
}

// Label returns the selector's label.
func (s *Selector) Label() string { return s.label }

// Segments returns a copy of the current path.
func (s *Selector) Segments() []string { return append([]string(nil), s.segments...) }

// IsEmpty reports whether every segment has been popped.
func (s *Selector) IsEmpty() bool { return len(s.segments) == 0 }

// CSS returns the flattened path, computing and caching it on first use.
func (s *Selector) CSS() (string, error) {
	if s.css != "" {
		return s.css, nil
	}
	css, err := Flatten(s.segments)
	if err != nil {
		return "", err
	}
	s.css = css
	return css, nil
}

// String is CSS without the error; an empty selector renders as "".
func (s *Selector) String() string {
	css, _ := s.CSS()
	return css
}

// Query returns the document.querySelector expression for the path.
func (s *Selector) Query() (string, error) {
	css, err := s.CSS()
	if err != nil {
		return "", err
	}
	return "document.querySelector(" + chrome.QuoteJS(css) + ")", nil
}

// Pop removes the last segment.
func (s *Selector) Pop() {
	if len(s.segments) == 0 {
		return
	}
	s.segments = s.segments[:len(s.segments)-1]
	s.css = ""
}

// SetHierarchy replaces the path.
func (s *Selector) SetHierarchy(segments []string) {
	s.segments = append([]string(nil), segments...)
	s.css = ""
}
