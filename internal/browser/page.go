package browser

import (
	"context"
	"fmt"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

const (
	defaultOpTimeout       = 5 * time.Second
	defaultNavigateTimeout = 20 * time.Second
)

// Page is a single attached browser target. It satisfies meet.Surface, so the
// automation layers can drive it without knowing about CDP.
type Page struct {
	id     target.ID
	ctx    context.Context
	cancel context.CancelFunc

	opTimeout  time.Duration
	navTimeout time.Duration
}

// TargetID identifies the underlying DevTools target.
func (p *Page) TargetID() string { return string(p.id) }

// Context returns the page's attachment context. It ends when the target goes
// away or the supervisor shuts down.
func (p *Page) Context() context.Context { return p.ctx }

// Location returns the URL the page is currently showing.
func (p *Page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, p.opTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("could not read the page location: %w", err)
	}
	return loc, nil
}

// HTML returns a snapshot of the rendered document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, p.opTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("could not snapshot the page: %w", err)
	}
	return html, nil
}

// Eval runs a JavaScript expression on the page and unmarshals its result
// into out. A nil out discards the result.
func (p *Page) Eval(ctx context.Context, expr string, out any) error {
	return p.run(ctx, p.opTimeout, chromedp.Evaluate(expr, out))
}

// Navigate loads rawurl in the page and waits for the load to settle.
func (p *Page) Navigate(ctx context.Context, rawurl string) error {
	if err := p.run(ctx, p.navTimeout, chromedp.Navigate(rawurl)); err != nil {
		return fmt.Errorf("could not navigate to %q: %w", rawurl, err)
	}
	return nil
}

// CloseTab closes the tab behind the page, running its beforeunload hooks.
// The supervisor reaps the attachment once the target disappears.
func (p *Page) CloseTab(ctx context.Context) error {
	err := p.run(ctx, p.opTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return cdppage.Close().Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("could not close tab %s: %w", p.id, err)
	}
	return nil
}

// run executes a CDP action against the page, honoring both the caller's
// context and the per operation timeout.
func (p *Page) run(ctx context.Context, timeout time.Duration, action chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, opCancel := context.WithTimeout(p.ctx, timeout)
	defer opCancel()
	stop := context.AfterFunc(ctx, opCancel)
	defer stop()
	return chromedp.Run(opCtx, action)
}

// detach releases the CDP attachment without touching the tab itself.
func (p *Page) detach() { p.cancel() }
