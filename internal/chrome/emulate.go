package chrome

import (
	"context"
	"fmt"
)

// SetViewport sets the page viewport size.
func (p *Page) SetViewport(ctx context.Context, viewport Viewport) error {
	_, err := p.call(ctx, "Emulation.setDeviceMetricsOverride", map[string]interface{}{
		"width":             viewport.Width,
		"height":            viewport.Height,
		"deviceScaleFactor": 1,
		"mobile":            false,
	})
	if err != nil {
		return fmt.Errorf("setting viewport: %w", err)
	}

	return nil
}

// SetUserAgent overrides the user agent reported by the page.
func (p *Page) SetUserAgent(ctx context.Context, userAgent string) error {
	_, err := p.call(ctx, "Emulation.setUserAgentOverride", map[string]interface{}{
		"userAgent": userAgent,
	})
	if err != nil {
		return fmt.Errorf("setting user agent: %w", err)
	}

	return nil
}

// SetExtraHTTPHeaders adds headers to every request the page makes.
func (p *Page) SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error {
	if _, err := p.call(ctx, "Network.enable", nil); err != nil {
		return fmt.Errorf("enabling Network domain: %w", err)
	}

	_, err := p.call(ctx, "Network.setExtraHTTPHeaders", map[string]interface{}{
		"headers": headers,
	})
	if err != nil {
		return fmt.Errorf("setting extra headers: %w", err)
	}

	return nil
}
