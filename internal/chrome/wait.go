package chrome

import (
	"context"
	"fmt"
	"time"
)

const waitPollInterval = 100 * time.Millisecond

// selectorStateJS reports whether the element matching selector exists and,
// when visible is set, whether it is rendered.
const selectorStateJS = `(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	if (!%t) return true;
	const style = window.getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	return !!style && style.visibility !== 'hidden' && !!(rect.top || rect.bottom || rect.width || rect.height);
})()`

// WaitForSelector polls until an element matching selector is present (and
// rendered, with opts.Visible) or opts.Timeout expires. Expiry is reported as
// ErrWaitTimeout. Evaluation failures such as a malformed selector end the
// wait immediately.
func (p *Page) WaitForSelector(ctx context.Context, selector string, opts WaitOptions) error {
	js := fmt.Sprintf(selectorStateJS, QuoteJS(selector), opts.Visible)

	waitCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		value, err := p.Evaluate(waitCtx, js)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return fmt.Errorf("%w for selector: %s", ErrWaitTimeout, selector)
			}
			return err
		}
		if found, _ := value.(bool); found {
			return nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w for selector: %s", ErrWaitTimeout, selector)
		}
	}
}
