// Package browser wraps a headless Chrome session for the render-based
// extraction strategies. Sessions carry their own configuration so two
// adapters never share mutable browser state.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrCaptcha means the site presented a CAPTCHA challenge. The session is
// unusable for further authenticated work.
var ErrCaptcha = errors.New("browser: captcha challenge presented")

// ErrLoginFailed means the credentials were rejected.
var ErrLoginFailed = errors.New("browser: login failed")

const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['ko-KR', 'ko', 'en-US'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3] });
window.chrome = { runtime: {} };
`

var captchaMarkers = []string{
	"captcha",
	"자동입력 방지",
	"보안 문자",
}

// Config is per-session browser configuration.
type Config struct {
	Headless  bool
	UserAgent string
	Width     int
	Height    int
	Timeout   time.Duration
}

// LoginParams describes a login form flow: fill the two fields, submit,
// then verify the browser actually left the login page. FailureURLPart
// marks the login page itself; a post-submit URL still matching it means
// the credentials were rejected, regardless of SuccessURLPart.
type LoginParams struct {
	URL              string
	IDSelector       string
	PasswordSelector string
	SubmitSelector   string
	ID               string
	Password         string
	FailureURLPart   string
	SuccessURLPart   string
}

// Session is one exclusive browser instance.
type Session interface {
	// Navigate loads the URL and waits for the document body.
	Navigate(ctx context.Context, url string) error

	// HTML returns the current page markup, scoped by selector
	// ("html" for the whole document).
	HTML(ctx context.Context, selector string) (string, error)

	// AutoScroll scrolls incrementally to trigger lazy-loaded list items,
	// within a fixed distance budget.
	AutoScroll(ctx context.Context) error

	// Login performs a form login. Returns ErrCaptcha or ErrLoginFailed.
	Login(ctx context.Context, params LoginParams) error

	// Close releases the browser. Idempotent.
	Close()
}

// ChromeSession implements Session on a dedicated Chrome process.
type ChromeSession struct {
	ctx     context.Context
	cancels []context.CancelFunc
	timeout time.Duration
	closed  bool
}

// NewChromeSession starts a Chrome instance configured per cfg.
func NewChromeSession(ctx context.Context, cfg Config) (Session, error) {
	if cfg.Width == 0 {
		cfg.Width = 1280
	}
	if cfg.Height == 0 {
		cfg.Height = 900
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36"
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.Width, cfg.Height),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &ChromeSession{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelCtx, cancelAlloc},
		timeout: cfg.Timeout,
	}

	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	return s, nil
}

// Navigate loads the URL and waits for the document body
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(humanDelay()),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// HTML returns the current page markup scoped by selector
func (s *ChromeSession) HTML(ctx context.Context, selector string) (string, error) {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to extract HTML for %q: %w", selector, err)
	}
	return html, nil
}

// AutoScroll scrolls incrementally with a distance budget so infinite
// lists load a few screens without the session scrolling forever.
func (s *ChromeSession) AutoScroll(ctx context.Context) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	const step = 600
	const budget = 3000

	for scrolled := 0; scrolled < budget; scrolled += step {
		err := chromedp.Run(runCtx,
			chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", step), nil),
			chromedp.Sleep(humanDelay()),
		)
		if err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
	}
	return nil
}

// Login performs a form login flow
func (s *ChromeSession) Login(ctx context.Context, params LoginParams) error {
	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	var bodyText, currentURL string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(params.URL),
		chromedp.WaitVisible(params.IDSelector, chromedp.ByQuery),
		chromedp.Sleep(humanDelay()),
		chromedp.SendKeys(params.IDSelector, params.ID, chromedp.ByQuery),
		chromedp.Sleep(humanDelay()),
		chromedp.SendKeys(params.PasswordSelector, params.Password, chromedp.ByQuery),
		chromedp.Sleep(humanDelay()),
		chromedp.Click(params.SubmitSelector, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.Text("body", &bodyText, chromedp.ByQuery),
		chromedp.Location(&currentURL),
	)
	if err != nil {
		return fmt.Errorf("login flow failed: %w", err)
	}

	return loginResult(bodyText, currentURL, params)
}

// loginResult decides whether a submitted login form succeeded, from the
// page body and the URL the browser landed on. Sitting on the login page
// after submit means rejection even when the URL matches SuccessURLPart,
// since login pages usually live on the same domain.
func loginResult(bodyText, currentURL string, params LoginParams) error {
	lower := strings.ToLower(bodyText)
	for _, marker := range captchaMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return ErrCaptcha
		}
	}

	if params.FailureURLPart != "" && strings.Contains(currentURL, params.FailureURLPart) {
		return ErrLoginFailed
	}
	if params.SuccessURLPart != "" && !strings.Contains(currentURL, params.SuccessURLPart) {
		return ErrLoginFailed
	}
	return nil
}

// Close releases the browser. Idempotent.
func (s *ChromeSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, cancel := range s.cancels {
		cancel()
	}
}

func (s *ChromeSession) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return context.WithTimeout(s.ctx, timeout)
}

func humanDelay() time.Duration {
	return time.Duration(300+time.Now().UnixNano()%500) * time.Millisecond
}
