// Package actions implements the wait, query and interaction primitives run
// against the session page through labelled selectors.
package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tomyan/bopbot/internal/chrome"
	"github.com/tomyan/bopbot/internal/dom"
	"github.com/tomyan/bopbot/internal/logging"
	"github.com/tomyan/bopbot/internal/session"
)

// DefaultAnimationTimeout bounds WaitForElement when none is given.
const DefaultAnimationTimeout = 5 * time.Second

// Frame evaluates expressions in a page or sub-frame. *chrome.Page and
// *chrome.Frame implement it.
type Frame interface {
	Evaluate(ctx context.Context, expression string) (interface{}, error)
}

// Source supplies the current page. *session.PageSession implements it.
type Source interface {
	Page() session.Page
}

// ElementNotFoundError is returned when a selector does not appear before the
// animation timeout.
type ElementNotFoundError struct {
	Label   string
	Visible bool
	Err     error
}

// Mode is "visible" or "even as not visible".
func (e *ElementNotFoundError) Mode() string {
	if e.Visible {
		return "visible"
	}
	return "even as not visible"
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("can not find element [%s] %s", e.Label, e.Mode())
}

func (e *ElementNotFoundError) Unwrap() error {
	return e.Err
}

// Actions runs primitives against the page of its source. Calls must be
// sequenced by the caller.
type Actions struct {
	source           Source
	animationTimeout time.Duration
	logger           *zap.Logger
	// Dir is where screenshots are written. Empty means the working directory.
	Dir string
	// TypingDelay separates keystrokes when Type is given a negative delay.
	TypingDelay time.Duration
}

// New returns an action layer over source.
func New(source Source, animationTimeout time.Duration, logger *zap.Logger) *Actions {
	if animationTimeout <= 0 {
		animationTimeout = DefaultAnimationTimeout
	}
	return &Actions{
		source:           source,
		animationTimeout: animationTimeout,
		logger:           logging.Nop(logger).Named("actions"),
	}
}

func (a *Actions) page() session.Page {
	return a.source.Page()
}

// WaitForElement polls until the selector exists, and is visible when
// asVisible is set.
func (a *Actions) WaitForElement(ctx context.Context, sel *dom.Selector, asVisible bool) error {
	css, err := sel.CSS()
	if err != nil {
		return err
	}

	err = a.page().WaitForSelector(ctx, css, chrome.WaitOptions{Timeout: a.animationTimeout, Visible: asVisible})
	if errors.Is(err, chrome.ErrWaitTimeout) {
		a.logger.Debug("element not found",
			zap.String("label", sel.Label()),
			zap.String("selector", css),
			zap.Bool("visible", asVisible))
		return &ElementNotFoundError{Label: sel.Label(), Visible: asVisible, Err: err}
	}
	return err
}

// Query evaluates <query>.<property> on the page and returns the raw value.
func (a *Actions) Query(ctx context.Context, sel *dom.Selector, property string) (interface{}, error) {
	return a.QueryFrame(ctx, a.page(), sel, property)
}

// QueryFrame is Query against frame. Evaluation errors are returned as is.
func (a *Actions) QueryFrame(ctx context.Context, frame Frame, sel *dom.Selector, property string) (interface{}, error) {
	query, err := sel.Query()
	if err != nil {
		return nil, err
	}
	return frame.Evaluate(ctx, query+"."+property)
}

// SelectorExists reports whether the selector matches a node on the page. It
// does not wait. Any evaluation error reads as false.
func (a *Actions) SelectorExists(ctx context.Context, sel *dom.Selector) bool {
	return a.SelectorExistsInFrame(ctx, a.page(), sel)
}

// SelectorExistsInFrame is SelectorExists against frame.
func (a *Actions) SelectorExistsInFrame(ctx context.Context, frame Frame, sel *dom.Selector) bool {
	query, err := sel.Query()
	if err != nil {
		return false
	}
	v, err := frame.Evaluate(ctx, query+" !== null")
	if err != nil {
		a.logger.Debug("existence probe failed", zap.String("label", sel.Label()), zap.Error(err))
		return false
	}
	exists, _ := v.(bool)
	return exists
}

// SelectorVisible reports whether the matched node's inline display is not
// "none". It does not look at visibility, opacity, size or position.
func (a *Actions) SelectorVisible(ctx context.Context, sel *dom.Selector) (bool, error) {
	v, err := a.Query(ctx, sel, `style.display != "none"`)
	if err != nil {
		return false, err
	}
	visible, _ := v.(bool)
	return visible, nil
}

// Click waits for the element and clicks its centre.
func (a *Actions) Click(ctx context.Context, sel *dom.Selector, asVisible bool) error {
	if err := a.WaitForElement(ctx, sel, asVisible); err != nil {
		return err
	}
	return a.page().Click(ctx, sel.String())
}

// Type waits for the element to be visible and types text one key at a time
// with delay between keystrokes. A negative delay uses TypingDelay.
func (a *Actions) Type(ctx context.Context, sel *dom.Selector, text string, delay time.Duration) error {
	if err := a.WaitForElement(ctx, sel, true); err != nil {
		return err
	}
	if delay < 0 {
		delay = max(a.TypingDelay, 0)
	}
	return a.page().Type(ctx, sel.String(), text, delay)
}

// Select waits for the element to be visible and sets the select's value.
func (a *Actions) Select(ctx context.Context, sel *dom.Selector, value string) error {
	if err := a.WaitForElement(ctx, sel, true); err != nil {
		return err
	}
	return a.page().Select(ctx, sel.String(), value)
}

// Clear empties the element's value.
func (a *Actions) Clear(ctx context.Context, sel *dom.Selector) error {
	query, err := sel.Query()
	if err != nil {
		return err
	}
	_, err = a.page().Evaluate(ctx, query+`.value = ""`)
	return err
}

// Focus focuses the element.
func (a *Actions) Focus(ctx context.Context, sel *dom.Selector) error {
	css, err := sel.CSS()
	if err != nil {
		return err
	}
	return a.page().Focus(ctx, css)
}

// Screenshot writes the page to <name>-capture.png. An empty name is replaced
// with a random UUID.
func (a *Actions) Screenshot(ctx context.Context, name string) error {
	if name == "" {
		name = uuid.NewString()
	}

	data, err := a.page().Screenshot(ctx)
	if err != nil {
		return err
	}

	filename := filepath.Join(a.Dir, name+"-capture.png")
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}
	a.logger.Debug("screenshot saved", zap.String("file", filename), zap.Int("bytes", len(data)))
	return nil
}

// Sleep pauses for d or until ctx is done.
func (a *Actions) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitForNavigation waits for the page to finish loading.
func (a *Actions) WaitForNavigation(ctx context.Context, timeout time.Duration) error {
	return a.page().WaitForNavigation(ctx, timeout)
}
