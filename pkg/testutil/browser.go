// browser.go provides browser automation for the e2e suite.
// It wraps Rod to drive a Chrome instance that gathers real ICE candidates.
package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/pion/webrtc/v4"
)

// BrowserConfig configures Chrome launch options.
type BrowserConfig struct {
	Headless bool          // Run in headless mode (default: true)
	Timeout  time.Duration // Default operation timeout (default: 30s)
}

// DefaultBrowserConfig returns sensible defaults for e2e testing.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless: true,
		Timeout:  30 * time.Second,
	}
}

// BrowserClient wraps Rod with a WebRTC-ready Chrome configuration.
type BrowserClient struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

// NewBrowserClient launches a headless Chrome.
// The browser is configured with:
//   - No sandbox (for container compatibility)
//   - mDNS host candidate obfuscation disabled, so host candidates carry
//     real addresses
//   - leakless supervision, so Chrome dies with the test binary even when a
//     test panics before Close
func NewBrowserClient(cfg BrowserConfig) (*BrowserClient, error) {
	l := launcher.New().
		Leakless(true).
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-features", "WebRtcHideLocalIpsWithMdns")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}

	return &BrowserClient{
		launcher: l,
		browser:  browser,
		timeout: cfg.Timeout,
	}, nil
}

// Navigate opens a URL with timeout.
// Returns the page for further interaction.
func (c *BrowserClient) Navigate(url string) (*rod.Page, error) {
	page := c.browser.MustPage()
	c.page = page

	err := page.Timeout(c.timeout).Navigate(url)
	if err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	// Cancel timeout so Close() works
	page.CancelTimeout()
	return page, nil
}

// Page returns the current page, or nil if none open.
func (c *BrowserClient) Page() *rod.Page {
	return c.page
}

// WaitStable waits for the page to be stable (no DOM changes).
func (c *BrowserClient) WaitStable() error {
	if c.page == nil {
		return errors.New("no page open")
	}
	return c.page.WaitStable(c.timeout)
}

// GatherCandidates creates an RTCPeerConnection in the page, waits for ICE
// gathering to complete and returns every candidate the browser produced.
func (c *BrowserClient) GatherCandidates() ([]webrtc.ICECandidateInit, error) {
	if c.page == nil {
		return nil, errors.New("no page open, call Navigate first")
	}

	result, err := c.page.Timeout(c.timeout).Eval(`async () => {
		const pc = new RTCPeerConnection();
		pc.createDataChannel("gather");
		const gathered = [];
		const done = new Promise((resolve) => {
			pc.onicecandidate = (e) => {
				if (e.candidate && e.candidate.candidate) {
					gathered.push(e.candidate.toJSON());
				} else if (!e.candidate) {
					resolve();
				}
			};
		});
		await pc.setLocalDescription(await pc.createOffer());
		await done;
		pc.close();
		return JSON.stringify(gathered);
	}`)
	if err != nil {
		return nil, fmt.Errorf("gather candidates: %w", err)
	}

	var inits []webrtc.ICECandidateInit
	if err := json.Unmarshal([]byte(result.Value.Str()), &inits); err != nil {
		return nil, fmt.Errorf("decode gathered candidates: %w", err)
	}
	return inits, nil
}

// Close cleans up browser resources: it closes the browser, kills the
// process if it is still around and removes its user data directory.
// Always call this (via defer or t.Cleanup).
func (c *BrowserClient) Close() error {
	var err error
	if c.browser != nil {
		err = c.browser.Close()
	}
	if c.launcher != nil {
		c.launcher.Kill()
		c.launcher.Cleanup()
	}
	return err
}
