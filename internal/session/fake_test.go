package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomyan/bopbot/internal/chrome"
)

type fakePage struct {
	mu      sync.Mutex
	id      string
	calls   []string
	scripts map[string]string
	nextID  int
	headers map[string]string
	ua      string
	gotoErr error
	// injectErrs fail the next EvaluateOnNewDocument calls in order.
	injectErrs []error
	closed     bool
}

func newFakePage(id string) *fakePage {
	return &fakePage{id: id, scripts: map[string]string{}}
}

func (p *fakePage) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *fakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePage) ID() string { return p.id }

func (p *fakePage) Close(ctx context.Context) error {
	p.record("Close")
	p.closed = true
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, expression string) (interface{}, error) {
	p.record("Evaluate")
	return nil, nil
}

func (p *fakePage) EvaluateOnNewDocument(ctx context.Context, source string) (string, error) {
	p.record("EvaluateOnNewDocument")
	if len(p.injectErrs) > 0 {
		err := p.injectErrs[0]
		p.injectErrs = p.injectErrs[1:]
		return "", err
	}
	p.nextID++
	id := fmt.Sprintf("script-%d", p.nextID)
	p.scripts[id] = source
	return id, nil
}

func (p *fakePage) RemoveScriptOnNewDocument(ctx context.Context, identifier string) error {
	p.record("RemoveScriptOnNewDocument")
	delete(p.scripts, identifier)
	return nil
}

func (p *fakePage) SetViewport(ctx context.Context, viewport chrome.Viewport) error {
	p.record(fmt.Sprintf("SetViewport %dx%d", viewport.Width, viewport.Height))
	return nil
}

func (p *fakePage) SetUserAgent(ctx context.Context, userAgent string) error {
	p.record("SetUserAgent")
	p.ua = userAgent
	return nil
}

func (p *fakePage) SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error {
	p.record("SetExtraHTTPHeaders")
	p.headers = headers
	return nil
}

func (p *fakePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p.record("Goto " + url)
	return p.gotoErr
}

func (p *fakePage) WaitForNavigation(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (p *fakePage) WaitForSelector(ctx context.Context, selector string, opts chrome.WaitOptions) error {
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error { return nil }
func (p *fakePage) Focus(ctx context.Context, selector string) error { return nil }

func (p *fakePage) Type(ctx context.Context, selector string, text string, delay time.Duration) error {
	return nil
}

func (p *fakePage) Select(ctx context.Context, selector string, value string) error { return nil }
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error)                  { return nil, nil }
func (p *fakePage) Frames(ctx context.Context) ([]*chrome.Frame, error)             { return nil, nil }

type fakeBrowser struct {
	existing []*fakePage
	created  *fakePage
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	b.created = newFakePage("new")
	return b.created, nil
}

func (b *fakeBrowser) Pages(ctx context.Context) ([]Page, error) {
	var out []Page
	for _, p := range b.existing {
		out = append(out, p)
	}
	if b.created != nil {
		out = append(out, b.created)
	}
	return out, nil
}
