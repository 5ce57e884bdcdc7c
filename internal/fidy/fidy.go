// Package fidy implements the engine's Surface against the fidy.app
// reservation form. Every selector key the target exposes lives in this
// package; a markup change on the site only needs updates here.
package fidy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/centralino/internal/booking"
	"github.com/example/centralino/internal/browser"
	"github.com/example/centralino/internal/engine"
)

// Selector keys for the target form, in step order.
const (
	selPartySize   = ".nCoperti"
	selSeatsYes    = ".SeggSI"
	selSeatsNo     = ".SeggNO"
	selSeatsCount  = ".nSeggiolini"
	selQuickDate   = ".dataBtn"
	selMealToggle  = ".tipoBtn"
	selTimeSelect  = "#OraPren"
	selNote        = "#Nota"
	selConfirm     = ".confDati"
	selContactForm = "#prenoForm"
	selFirstName   = "#Nome"
	selLastName    = "#Cognome"
	selEmail       = "#Email"
	selPhone       = "#Telefono"
	selSubmit      = `input[type="submit"][value="PRENOTA"]`
	txtConfirm     = "text=/CONFERMA/i"
	txtSubmit      = "text=/PRENOTA/i"
)

// The date widget has no reliable generic control, so this one step assigns
// the value in-page and dispatches a change notification.
const dateAssignScript = `(val) => {
  const el = document.querySelector('#DataPren') || document.querySelector('input[type="date"]');
  if (!el) return false;
  el.value = val;
  el.dispatchEvent(new Event('change', { bubbles: true }));
  return true;
}`

const timeOptionsScript = `() => {
  const sel = document.querySelector('#OraPren');
  if (!sel) return [];
  return Array.from(sel.options)
    .filter(o => !o.disabled)
    .map(o => ({ value: (o.value || '').trim(), text: (o.textContent || '').trim() }));
}`

const selectByTextScript = `(hhmm) => {
  const sel = document.querySelector('#OraPren');
  if (!sel) return false;
  const opt = Array.from(sel.options).find(o => (o.textContent || '').includes(hhmm));
  if (!opt) return false;
  sel.value = opt.value;
  sel.dispatchEvent(new Event('change', { bubbles: true }));
  return true;
}`

const timePopulatedScript = `() => {
  const sel = document.querySelector('#OraPren');
  return !!(sel && sel.options && sel.options.length > 1);
}`

var optionTimeRe = regexp.MustCompile(`^\d{1,2}:\d{2}`)

var cookieBannerPatterns = []string{"accetta", "consent", "ok", "accetto"}

// Factory opens one Surface per request over a shared browser driver.
type Factory struct {
	Driver        *browser.Driver
	URL           string
	StepTimeoutMS float64
	ScreenshotDir string
}

func (f *Factory) New(ctx context.Context) (engine.Surface, error) {
	b, page, err := f.Driver.NewPage()
	if err != nil {
		return nil, err
	}
	s := &Surface{
		browser:       b,
		page:          page,
		url:           f.URL,
		stepTimeout:   f.StepTimeoutMS,
		screenshotDir: f.ScreenshotDir,
		conf:          &confirmation{},
	}
	// Registered once per session, before any submit can happen.
	page.OnResponse(s.conf.observe)
	return s, nil
}

// Surface drives the fidy.app booking form through Playwright.
type Surface struct {
	browser       playwright.Browser
	page          playwright.Page
	url           string
	stepTimeout   float64 // ms
	screenshotDir string
	conf          *confirmation
}

var _ engine.Surface = (*Surface)(nil)

func (s *Surface) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Goto(s.url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("goto %s: %w", s.url, err)
	}
	s.dismissCookieBanner()
	return s.waitVisible(selPartySize, s.stepTimeout)
}

// dismissCookieBanner clicks whichever consent control is present. Absence
// is the normal case.
func (s *Surface) dismissCookieBanner() {
	for _, p := range cookieBannerPatterns {
		loc := s.page.Locator("text=/" + p + "/i").First()
		n, err := loc.Count()
		if err != nil || n == 0 {
			continue
		}
		if err := loc.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(1500),
			Force:   playwright.Bool(true),
		}); err == nil {
			return
		}
	}
}

func (s *Surface) SelectPartySize(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := s.page.Locator(fmt.Sprintf(`%s[rel="%d"]`, selPartySize, n)).First()
	if count, err := loc.Count(); err != nil || count == 0 {
		loc = s.page.GetByText(fmt.Sprintf("%d", n), playwright.PageGetByTextOptions{
			Exact: playwright.Bool(true),
		}).First()
	}
	return loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(8000),
		Force:   playwright.Bool(true),
	})
}

func (s *Surface) SetAccessoryCount(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n <= 0 {
		// An already-absent "no" toggle is not an error.
		no := s.page.Locator(selSeatsNo).First()
		if count, err := no.Count(); err == nil && count > 0 {
			if visible, err := no.IsVisible(); err == nil && visible {
				_ = no.Click(playwright.LocatorClickOptions{
					Timeout: playwright.Float(4000),
					Force:   playwright.Bool(true),
				})
			}
		}
		return nil
	}

	yes := s.page.Locator(selSeatsYes).First()
	if count, err := yes.Count(); err == nil && count > 0 {
		_ = yes.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(4000),
			Force:   playwright.Bool(true),
		})
	}

	if err := s.waitVisible(selSeatsCount, s.stepTimeout); err != nil {
		return err
	}
	loc := s.page.Locator(fmt.Sprintf(`%s[rel="%d"]`, selSeatsCount, n)).First()
	if count, err := loc.Count(); err != nil || count == 0 {
		loc = s.page.GetByText(fmt.Sprintf("%d", n), playwright.PageGetByTextOptions{
			Exact: playwright.Bool(true),
		}).First()
	}
	return loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(6000),
		Force:   playwright.Bool(true),
	})
}

func (s *Surface) SetDate(ctx context.Context, date string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if kind := booking.DateKindOf(date, time.Now()); kind == booking.DateToday || kind == booking.DateTomorrow {
		btn := s.page.Locator(fmt.Sprintf(`%s[rel="%s"]`, selQuickDate, date)).First()
		if count, err := btn.Count(); err == nil && count > 0 {
			return btn.Click(playwright.LocatorClickOptions{
				Timeout: playwright.Float(6000),
				Force:   playwright.Bool(true),
			})
		}
	}

	res, err := s.page.Evaluate(dateAssignScript, date)
	if err != nil {
		return fmt.Errorf("assign date: %w", err)
	}
	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("assign date: campo data non trovato")
	}
	return nil
}

func (s *Surface) SelectMeal(ctx context.Context, meal booking.Meal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := s.page.Locator(fmt.Sprintf(`%s[rel="%s"]`, selMealToggle, meal)).First()
	if count, err := loc.Count(); err == nil && count > 0 {
		return loc.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(8000),
			Force:   playwright.Bool(true),
		})
	}
	return s.page.Locator(fmt.Sprintf("text=/%s/i", meal)).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(8000),
		Force:   playwright.Bool(true),
	})
}

func (s *Surface) TimeOptions(ctx context.Context) ([]booking.OfferedSlot, error) {
	if err := s.waitVisible(selTimeSelect, s.stepTimeout); err != nil {
		return nil, err
	}
	if err := s.waitTimePopulated(ctx); err != nil {
		// An empty selector is a valid scrape result.
		return nil, nil
	}

	res, err := s.page.Evaluate(timeOptionsScript)
	if err != nil {
		return nil, fmt.Errorf("scrape time options: %w", err)
	}

	raw, _ := res.([]any)
	var out []booking.OfferedSlot
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value, _ := m["value"].(string)
		text, _ := m["text"].(string)
		if text == "" || !optionTimeRe.MatchString(text) {
			continue
		}
		if value == "" {
			value = text
		}
		out = append(out, booking.OfferedSlot{Value: value, Text: text})
	}
	return out, nil
}

func (s *Surface) SelectTimeValue(ctx context.Context, value string) error {
	if err := s.waitVisible(selTimeSelect, s.stepTimeout); err != nil {
		return err
	}
	if err := s.waitTimePopulated(ctx); err != nil {
		return err
	}
	selected, err := s.page.Locator(selTimeSelect).SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	if err != nil {
		return fmt.Errorf("select %q: %w", value, err)
	}
	if len(selected) == 0 {
		return fmt.Errorf("select %q: %w", value, engine.ErrOptionNotFound)
	}
	return nil
}

func (s *Surface) SelectTimeByText(ctx context.Context, hhmm string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := s.page.Evaluate(selectByTextScript, hhmm)
	if err != nil {
		return "", fmt.Errorf("select by text %q: %w", hhmm, err)
	}
	if ok, _ := res.(bool); !ok {
		return "", fmt.Errorf("select by text %q: %w", hhmm, engine.ErrOptionNotFound)
	}
	return s.page.Locator(selTimeSelect).InputValue()
}

func (s *Surface) FillNote(ctx context.Context, note string) error {
	if note == "" {
		return nil
	}
	// Notes are non-critical: a missing field is swallowed.
	if err := s.waitVisible(selNote, s.stepTimeout); err != nil {
		return nil
	}
	_ = s.page.Locator(selNote).Fill(note, playwright.LocatorFillOptions{
		Timeout: playwright.Float(8000),
	})
	return nil
}

func (s *Surface) ConfirmDetails(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := s.page.Locator(selConfirm).First()
	if count, err := loc.Count(); err == nil && count > 0 {
		return loc.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(8000),
			Force:   playwright.Bool(true),
		})
	}
	return s.page.Locator(txtConfirm).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(8000),
		Force:   playwright.Bool(true),
	})
}

func (s *Surface) FillContact(ctx context.Context, c booking.Contact) error {
	if err := s.waitVisible(selContactForm, s.stepTimeout); err != nil {
		return err
	}
	fillOpts := playwright.LocatorFillOptions{Timeout: playwright.Float(8000)}
	if err := s.page.Locator(selFirstName).Fill(c.FirstName, fillOpts); err != nil {
		return err
	}
	if err := s.page.Locator(selLastName).Fill(c.LastName, fillOpts); err != nil {
		return err
	}
	if err := s.page.Locator(selEmail).Fill(c.Email, fillOpts); err != nil {
		return err
	}
	return s.page.Locator(selPhone).Fill(c.Phone, fillOpts)
}

func (s *Surface) ArmConfirmation() <-chan string {
	return s.conf.arm()
}

func (s *Surface) Submit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := s.page.Locator(selSubmit).First()
	if count, err := loc.Count(); err == nil && count > 0 {
		return loc.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(15000),
			Force:   playwright.Bool(true),
		})
	}
	return s.page.Locator(txtSubmit).Last().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(15000),
		Force:   playwright.Bool(true),
	})
}

func (s *Surface) Screenshot(ctx context.Context) (string, error) {
	dir := s.screenshotDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("booking_error_%s.png", time.Now().UTC().Format("20060102_150405.000")))
	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Surface) Close() {
	_ = s.browser.Close()
}

func (s *Surface) waitVisible(selector string, timeoutMS float64) error {
	return s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(timeoutMS),
	})
}

// waitTimePopulated polls until the time selector carries real options. The
// form fills it asynchronously after the meal toggle.
func (s *Surface) waitTimePopulated(ctx context.Context) error {
	deadline := time.Now().Add(time.Duration(s.stepTimeout) * time.Millisecond)
	for {
		res, err := s.page.Evaluate(timePopulatedScript)
		if err == nil {
			if ok, _ := res.(bool); ok {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("time selector not populated: %w", engine.ErrOptionNotFound)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}
