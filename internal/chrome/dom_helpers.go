package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// callInto sends method on the page session and decodes the reply into out.
func (p *Page) callInto(ctx context.Context, method string, params, out interface{}) error {
	raw, err := p.call(ctx, method, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s reply: %w", method, err)
	}
	return nil
}

type nodeRef struct {
	NodeID int64 `json:"nodeId"`
}

// resolveNodeID returns the node ID of the first element matching selector in
// the top document.
func (p *Page) resolveNodeID(ctx context.Context, selector string) (int64, error) {
	if _, err := p.call(ctx, "DOM.enable", nil); err != nil {
		return 0, fmt.Errorf("enabling DOM domain: %w", err)
	}

	var doc struct {
		Root nodeRef `json:"root"`
	}
	if err := p.callInto(ctx, "DOM.getDocument", nil, &doc); err != nil {
		return 0, fmt.Errorf("getting document: %w", err)
	}

	var found nodeRef
	params := map[string]interface{}{"nodeId": doc.Root.NodeID, "selector": selector}
	if err := p.callInto(ctx, "DOM.querySelector", params, &found); err != nil {
		return 0, fmt.Errorf("querying %s: %w", selector, err)
	}
	if found.NodeID == 0 {
		return 0, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return found.NodeID, nil
}

func (p *Page) scrollIntoView(ctx context.Context, nodeID int64) error {
	if _, err := p.call(ctx, "DOM.scrollIntoViewIfNeeded", nodeRef{NodeID: nodeID}); err != nil {
		return fmt.Errorf("scrolling into view: %w", err)
	}
	return nil
}

// quad is four x,y corner points as reported in a box model.
type quad []float64

var errBadQuad = errors.New("box model quad needs 8 coordinates")

func (q quad) center() (x, y float64, err error) {
	if len(q) < 8 {
		return 0, 0, errBadQuad
	}
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4, nil
}

// nodeCenter is the center of the node's content box in viewport coordinates.
func (p *Page) nodeCenter(ctx context.Context, nodeID int64) (x, y float64, err error) {
	var box struct {
		Model struct {
			Content quad `json:"content"`
		} `json:"model"`
	}
	if err := p.callInto(ctx, "DOM.getBoxModel", nodeRef{NodeID: nodeID}, &box); err != nil {
		return 0, 0, fmt.Errorf("getting box model: %w", err)
	}
	return box.Model.Content.center()
}

type mouseEvent struct {
	Type       string  `json:"type"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Button     string  `json:"button,omitempty"`
	ClickCount int     `json:"clickCount,omitempty"`
}

// dispatchMouseClick moves to x,y and presses then releases the left button.
func (p *Page) dispatchMouseClick(ctx context.Context, x, y float64) error {
	for _, ev := range []mouseEvent{
		{Type: "mouseMoved", X: x, Y: y},
		{Type: "mousePressed", X: x, Y: y, Button: "left", ClickCount: 1},
		{Type: "mouseReleased", X: x, Y: y, Button: "left", ClickCount: 1},
	} {
		if _, err := p.call(ctx, "Input.dispatchMouseEvent", ev); err != nil {
			return fmt.Errorf("dispatching %s: %w", ev.Type, err)
		}
	}
	return nil
}
