// Package session keeps one fingerprinted page open in a launched browser and
// navigates it.
package session

import (
	"context"
	"time"

	"github.com/tomyan/bopbot/internal/chrome"
)

// Page is the page surface the session and the action layer drive.
// *chrome.Page implements it.
type Page interface {
	ID() string
	Close(ctx context.Context) error
	Evaluate(ctx context.Context, expression string) (interface{}, error)
	EvaluateOnNewDocument(ctx context.Context, source string) (string, error)
	RemoveScriptOnNewDocument(ctx context.Context, identifier string) error
	SetViewport(ctx context.Context, viewport chrome.Viewport) error
	SetUserAgent(ctx context.Context, userAgent string) error
	SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error
	Goto(ctx context.Context, url string, timeout time.Duration) error
	WaitForNavigation(ctx context.Context, timeout time.Duration) error
	WaitForSelector(ctx context.Context, selector string, opts chrome.WaitOptions) error
	Click(ctx context.Context, selector string) error
	Focus(ctx context.Context, selector string) error
	Type(ctx context.Context, selector string, text string, delay time.Duration) error
	Select(ctx context.Context, selector string, value string) error
	Screenshot(ctx context.Context) ([]byte, error)
	Frames(ctx context.Context) ([]*chrome.Frame, error)
}

// Browser opens and lists pages.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Pages(ctx context.Context) ([]Page, error)
}

type clientBrowser struct {
	client *chrome.Client
}

// FromClient adapts a protocol client to Browser.
func FromClient(c *chrome.Client) Browser {
	return clientBrowser{client: c}
}

func (b clientBrowser) NewPage(ctx context.Context) (Page, error) {
	p, err := b.client.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (b clientBrowser) Pages(ctx context.Context) ([]Page, error) {
	pages, err := b.client.Pages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p
	}
	return out, nil
}
