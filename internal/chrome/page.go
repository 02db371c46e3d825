package chrome

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Page is a handle to a single page target. Its flat session is attached on
// first use and shared by every later command.
type Page struct {
	client   *Client
	targetID string
}

// Frame is a sub-frame of a page. Script runs in an isolated world created for
// the frame, so it sees the frame's DOM but not its page globals.
type Frame struct {
	page     *Page
	ID       string
	ParentID string
	Name     string
	URL      string
}

// NewPage opens a blank page target.
func (c *Client) NewPage(ctx context.Context) (*Page, error) {
	raw, err := c.Call(ctx, "Target.createTarget", map[string]interface{}{"url": "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("creating target: %w", err)
	}

	var created struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("decoding created target: %w", err)
	}
	return c.page(created.TargetID), nil
}

func (c *Client) page(targetID string) *Page {
	return &Page{client: c, targetID: targetID}
}

// Targets returns all browser targets (pages, workers, etc.).
func (c *Client) Targets(ctx context.Context) ([]TargetInfo, error) {
	raw, err := c.Call(ctx, "Target.getTargets", nil)
	if err != nil {
		return nil, err
	}

	var listed struct {
		TargetInfos []struct {
			TargetID string `json:"targetId"`
			Type     string `json:"type"`
			Title    string `json:"title"`
			URL      string `json:"url"`
		} `json:"targetInfos"`
	}
	if err := json.Unmarshal(raw, &listed); err != nil {
		return nil, fmt.Errorf("decoding targets: %w", err)
	}

	out := make([]TargetInfo, len(listed.TargetInfos))
	for i, t := range listed.TargetInfos {
		out[i] = TargetInfo{ID: t.TargetID, Type: t.Type, Title: t.Title, URL: t.URL}
	}
	return out, nil
}

// Pages returns handles for every open page target.
func (c *Client) Pages(ctx context.Context) ([]*Page, error) {
	targets, err := c.Targets(ctx)
	if err != nil {
		return nil, err
	}

	var pages []*Page
	for _, t := range targets {
		if t.Type == "page" {
			pages = append(pages, c.page(t.ID))
		}
	}
	return pages, nil
}

// ID returns the page's target ID.
func (p *Page) ID() string { return p.targetID }

func (p *Page) session(ctx context.Context) (string, error) {
	return p.client.attachToTarget(ctx, p.targetID)
}

func (p *Page) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	sessionID, err := p.session(ctx)
	if err != nil {
		return nil, err
	}
	return p.client.CallSession(ctx, sessionID, method, params)
}

// Close closes the page target.
func (p *Page) Close(ctx context.Context) error {
	p.client.forgetTarget(p.targetID)

	if _, err := p.client.Call(ctx, "Target.closeTarget", map[string]interface{}{"targetId": p.targetID}); err != nil {
		return fmt.Errorf("closing target: %w", err)
	}
	return nil
}

// evaluate runs Runtime.evaluate; contextID 0 means the main world.
func (p *Page) evaluate(ctx context.Context, expression string, contextID int64) (interface{}, error) {
	params := map[string]interface{}{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  true,
	}
	if contextID != 0 {
		params["contextId"] = contextID
	}

	var resp evalResponse
	if err := p.callInto(ctx, "Runtime.evaluate", params, &resp); err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return resp.Result.Value, nil
}

// Evaluate evaluates a JavaScript expression in the page's main world and
// returns its value. Promises are awaited. An uncaught exception is returned
// as a *JSError.
func (p *Page) Evaluate(ctx context.Context, expression string) (interface{}, error) {
	return p.evaluate(ctx, expression, 0)
}

// EvaluateOnNewDocument registers source to run in every new document before
// any of the document's own scripts. It returns the registration identifier.
func (p *Page) EvaluateOnNewDocument(ctx context.Context, source string) (string, error) {
	if _, err := p.call(ctx, "Page.enable", nil); err != nil {
		return "", fmt.Errorf("enabling Page domain: %w", err)
	}

	var added struct {
		Identifier string `json:"identifier"`
	}
	if err := p.callInto(ctx, "Page.addScriptToEvaluateOnNewDocument", map[string]interface{}{"source": source}, &added); err != nil {
		return "", fmt.Errorf("adding document script: %w", err)
	}
	return added.Identifier, nil
}

// RemoveScriptOnNewDocument unregisters a script added by EvaluateOnNewDocument.
func (p *Page) RemoveScriptOnNewDocument(ctx context.Context, identifier string) error {
	if _, err := p.call(ctx, "Page.removeScriptToEvaluateOnNewDocument", map[string]interface{}{"identifier": identifier}); err != nil {
		return fmt.Errorf("removing document script: %w", err)
	}
	return nil
}

// Screenshot captures the page as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var shot struct {
		Data string `json:"data"`
	}
	if err := p.callInto(ctx, "Page.captureScreenshot", map[string]interface{}{"format": "png"}, &shot); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}

	png, err := base64.StdEncoding.DecodeString(shot.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot data: %w", err)
	}
	return png, nil
}

// Frames returns every sub-frame of the page (nested iframes included). The
// main frame is the page itself and is not listed.
func (p *Page) Frames(ctx context.Context) ([]*Frame, error) {
	if _, err := p.call(ctx, "Page.enable", nil); err != nil {
		return nil, fmt.Errorf("enabling Page domain: %w", err)
	}

	var tree struct {
		FrameTree frameTreeNode `json:"frameTree"`
	}
	if err := p.callInto(ctx, "Page.getFrameTree", nil, &tree); err != nil {
		return nil, fmt.Errorf("getting frame tree: %w", err)
	}

	var frames []*Frame
	var walk func(frameTreeNode)
	walk = func(node frameTreeNode) {
		for _, child := range node.ChildFrames {
			frames = append(frames, &Frame{
				page:     p,
				ID:       child.Frame.ID,
				ParentID: child.Frame.ParentID,
				Name:     child.Frame.Name,
				URL:      child.Frame.URL,
			})
			walk(child)
		}
	}
	walk(tree.FrameTree)
	return frames, nil
}

// Evaluate evaluates a JavaScript expression in the frame.
func (f *Frame) Evaluate(ctx context.Context, expression string) (interface{}, error) {
	var world struct {
		ExecutionContextID int64 `json:"executionContextId"`
	}
	if err := f.page.callInto(ctx, "Page.createIsolatedWorld", map[string]interface{}{"frameId": f.ID}, &world); err != nil {
		return nil, fmt.Errorf("creating isolated world: %w", err)
	}
	return f.page.evaluate(ctx, expression, world.ExecutionContextID)
}
