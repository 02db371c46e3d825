package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Goto navigates the page to url and waits for the DOMContentLoaded event.
// A timeout of zero waits until ctx is done. Expiry is reported as
// ErrNavigationTimeout and a network-level failure as ErrNavigationFailed.
func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	sessionID, err := p.session(ctx)
	if err != nil {
		return err
	}

	_, err = p.client.CallSession(ctx, sessionID, "Page.enable", nil)
	if err != nil {
		return fmt.Errorf("enabling Page domain: %w", err)
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Subscribe before navigating so the event cannot be missed.
	domCh := p.client.subscribeEvent(sessionID, "Page.domContentEventFired")
	defer p.client.unsubscribeEvent(sessionID, "Page.domContentEventFired", domCh)

	navResult, err := p.client.CallSession(waitCtx, sessionID, "Page.navigate", map[string]string{
		"url": url,
	})
	if err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("%w after %s", ErrNavigationTimeout, timeout)
		}
		return fmt.Errorf("navigating: %w", err)
	}

	var navResp struct {
		FrameID   string `json:"frameId"`
		LoaderID  string `json:"loaderId"`
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(navResult, &navResp); err != nil {
		return fmt.Errorf("parsing navigate response: %w", err)
	}

	if navResp.ErrorText != "" {
		return fmt.Errorf("%w: %s", ErrNavigationFailed, navResp.ErrorText)
	}

	// Same-document navigations (fragment changes) fire no load events.
	if navResp.LoaderID == "" {
		return nil
	}

	return p.awaitEvent(ctx, waitCtx, domCh, timeout, ErrNavigationTimeout)
}

// WaitForNavigation waits for the next load event on the page, for example
// after a click that submits a form.
func (p *Page) WaitForNavigation(ctx context.Context, timeout time.Duration) error {
	sessionID, err := p.session(ctx)
	if err != nil {
		return err
	}

	_, err = p.client.CallSession(ctx, sessionID, "Page.enable", nil)
	if err != nil {
		return fmt.Errorf("enabling Page domain: %w", err)
	}

	loadCh := p.client.subscribeEvent(sessionID, "Page.loadEventFired")
	defer p.client.unsubscribeEvent(sessionID, "Page.loadEventFired", loadCh)

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return p.awaitEvent(ctx, waitCtx, loadCh, timeout, ErrNavigationTimeout)
}

func (p *Page) awaitEvent(ctx, waitCtx context.Context, ch <-chan json.RawMessage, timeout time.Duration, timeoutErr error) error {
	select {
	case <-ch:
		return nil
	case <-p.client.done:
		return ErrConnectionClosed
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %s", timeoutErr, timeout)
	}
}
