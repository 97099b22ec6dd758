// Package browser drives a real browser for pages whose content only exists
// after scripts run: the article index and the hover-only definition
// tooltips.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/config"
)

// Session is a single browser tab. Implementations are not safe for
// concurrent use.
type Session interface {
	// Navigate loads url and waits for the page to finish loading.
	Navigate(url string) error
	// HTML returns the rendered document.
	HTML() (string, error)
	// Exec runs a script in the page.
	Exec(script string) error
	// Hover moves the pointer over the element with the given id.
	Hover(id string) error
	// Text waits briefly for selector and returns its text.
	Text(selector string) (string, error)
	Close() error
}

// knownBins are tried in order when no binary is configured.
var knownBins = []string{
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// FindBin returns the configured binary, $CHROME_PATH, the first known
// install location, or whatever rod can find on PATH. It returns "" when no
// browser is available.
func FindBin(configured string) string {
	if configured != "" {
		return configured
	}
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, p := range knownBins {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if p, ok := launcher.LookPath(); ok {
		return p
	}
	return ""
}

// Rod is a Session backed by go-rod.
type Rod struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	navigateTimeout time.Duration
	tooltipTimeout  time.Duration
	logger          *slog.Logger
}

// Open launches a browser configured by cfg and opens one blank tab.
func Open(ctx context.Context, cfg config.Browser, logger *slog.Logger) (*Rod, error) {
	if logger == nil {
		logger = slog.Default()
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if bin := FindBin(cfg.Bin); bin != "" {
		l = l.Bin(bin)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		l = l.Set("window-size", strconv.Itoa(cfg.Width)+","+strconv.Itoa(cfg.Height))
	}
	if cfg.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w: %w", apperr.ErrConnectivity, err)
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w: %w", apperr.ErrConnectivity, err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open tab: %w: %w", apperr.ErrConnectivity, err)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.Width,
			Height:            cfg.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			logger.Warn("set viewport", "error", err)
		}
	}

	logger.Debug("browser started", "control_url", u, "headless", cfg.Headless)
	return &Rod{
		launcher:        l,
		browser:         b,
		page:            page,
		navigateTimeout: cfg.NavigateTimeout,
		tooltipTimeout:  cfg.TooltipTimeout,
		logger:          logger,
	}, nil
}

// Navigate loads url and waits for the load event.
func (r *Rod) Navigate(url string) error {
	p := r.page
	if r.navigateTimeout > 0 {
		p = p.Timeout(r.navigateTimeout)
	}
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w: %w", url, apperr.ErrConnectivity, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w: %w", url, apperr.ErrConnectivity, err)
	}
	return nil
}

// HTML returns the rendered document.
func (r *Rod) HTML() (string, error) {
	html, err := r.page.HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

// Exec evaluates a JavaScript function in the page.
func (r *Rod) Exec(script string) error {
	if _, err := r.page.Eval(script); err != nil {
		return fmt.Errorf("eval script: %w", err)
	}
	return nil
}

// Hover moves the pointer over the element with the given id.
func (r *Rod) Hover(id string) error {
	has, el, err := r.page.Has(`[id="` + id + `"]`)
	if err != nil {
		return fmt.Errorf("find #%s: %w", id, err)
	}
	if !has {
		return fmt.Errorf("#%s: %w", id, apperr.ErrElementNotFound)
	}
	if err := el.Hover(); err != nil {
		return fmt.Errorf("hover #%s: %w", id, err)
	}
	return nil
}

// Text waits up to the tooltip timeout for selector and returns its text.
func (r *Rod) Text(selector string) (string, error) {
	timeout := r.tooltipTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	el, err := r.page.Timeout(timeout).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: %w", selector, apperr.ErrElementNotFound)
		}
		return "", fmt.Errorf("find %s: %w", selector, err)
	}
	text, err := el.CancelTimeout().Text()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", selector, err)
	}
	return text, nil
}

// Close shuts down the tab, the browser and the launcher. It is safe to call
// more than once.
func (r *Rod) Close() error {
	if r.browser == nil {
		return nil
	}
	var errs []error
	if err := r.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close tab: %w", err))
	}
	if err := r.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	r.launcher.Cleanup()
	r.browser, r.page = nil, nil
	return errors.Join(errs...)
}
