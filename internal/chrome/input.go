package chrome

import (
	"context"
	"fmt"
	"time"
)

// Click scrolls the first element matching selector into view and clicks its
// center.
func (p *Page) Click(ctx context.Context, selector string) error {
	nodeID, err := p.resolveNodeID(ctx, selector)
	if err != nil {
		return err
	}

	if err := p.scrollIntoView(ctx, nodeID); err != nil {
		return err
	}

	x, y, err := p.nodeCenter(ctx, nodeID)
	if err != nil {
		return err
	}

	return p.dispatchMouseClick(ctx, x, y)
}

// Focus focuses on an element specified by selector.
func (p *Page) Focus(ctx context.Context, selector string) error {
	nodeID, err := p.resolveNodeID(ctx, selector)
	if err != nil {
		return err
	}

	_, err = p.call(ctx, "DOM.focus", map[string]interface{}{
		"nodeId": nodeID,
	})
	if err != nil {
		return fmt.Errorf("focusing element: %w", err)
	}

	return nil
}

// Type focuses the element matching selector and sends text one character at
// a time, pausing delay between keystrokes.
func (p *Page) Type(ctx context.Context, selector string, text string, delay time.Duration) error {
	if err := p.Focus(ctx, selector); err != nil {
		return err
	}

	first := true
	for _, r := range text {
		if !first && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		first = false

		if err := p.typeChar(ctx, r); err != nil {
			return err
		}
	}

	return nil
}

// typeChar dispatches key events for a single character.
func (p *Page) typeChar(ctx context.Context, r rune) error {
	char := string(r)
	keyDown := map[string]interface{}{
		"type": "keyDown",
		"text": char,
		"key":  char,
	}
	if r == '\n' {
		keyDown = map[string]interface{}{
			"type":                  "keyDown",
			"key":                   "Enter",
			"text":                  "\r",
			"windowsVirtualKeyCode": 13,
			"nativeVirtualKeyCode":  13,
		}
		char = "Enter"
	}

	if _, err := p.call(ctx, "Input.dispatchKeyEvent", keyDown); err != nil {
		return fmt.Errorf("keyDown for %q: %w", char, err)
	}

	_, err := p.call(ctx, "Input.dispatchKeyEvent", map[string]interface{}{
		"type": "keyUp",
		"key":  char,
	})
	if err != nil {
		return fmt.Errorf("keyUp for %q: %w", char, err)
	}
	return nil
}

// Select sets the value of the <select> element matching selector and fires
// its change event.
func (p *Page) Select(ctx context.Context, selector string, value string) error {
	js := fmt.Sprintf(`
		(function() {
			const el = document.querySelector(%s);
			if (!el) throw new Error('Element not found');
			if (el.tagName !== 'SELECT') throw new Error('Element is not a select');
			el.value = %s;
			el.dispatchEvent(new Event('input', { bubbles: true }));
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return el.value;
		})()
	`, QuoteJS(selector), QuoteJS(value))

	_, err := p.Evaluate(ctx, js)
	return err
}
