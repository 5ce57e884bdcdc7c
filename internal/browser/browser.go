// Package browser manages Playwright session lifecycle: one headless
// Chromium browser per request, torn down on every exit path.
package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// The target form is mobile-first; a phone profile gets the simple layout.
const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 " +
	"Mobile/15E148 Safari/604.1"

type Options struct {
	Headless     bool
	TimeoutMS    float64
	NavTimeoutMS float64
}

// Driver owns the shared Playwright runtime. Browsers are launched per
// request; the runtime itself is started once at process start.
type Driver struct {
	pw   *playwright.Playwright
	opts Options
}

func Start(opts Options) (*Driver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	return &Driver{pw: pw, opts: opts}, nil
}

func (d *Driver) Stop() error {
	return d.pw.Stop()
}

// NewPage launches a fresh browser with a mobile context and a page that
// blocks heavy resources. The caller must Close the returned browser.
func (d *Driver) NewPage() (playwright.Browser, playwright.Page, error) {
	b, err := d.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage",
			"--single-process",
			"--disable-gpu",
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	ctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(iphoneUA),
		Viewport:  &playwright.Size{Width: 390, Height: 844},
	})
	if err != nil {
		_ = b.Close()
		return nil, nil, fmt.Errorf("new context: %w", err)
	}

	page, err := ctx.NewPage()
	if err != nil {
		_ = b.Close()
		return nil, nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(d.opts.TimeoutMS)
	page.SetDefaultNavigationTimeout(d.opts.NavTimeoutMS)

	if err := page.Route("**/*", blockHeavy); err != nil {
		_ = b.Close()
		return nil, nil, fmt.Errorf("route: %w", err)
	}

	return b, page, nil
}

func blockHeavy(route playwright.Route) {
	switch route.Request().ResourceType() {
	case "image", "media", "font", "stylesheet":
		_ = route.Abort()
	default:
		_ = route.Continue()
	}
}
