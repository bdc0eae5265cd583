// pkg/browser/session.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/v0idlock/civreport-cli/internal/config"
)

// Session is a single isolated browser tab. All interaction helpers take
// ordered candidate-selector lists, try them in order, and report which one
// matched. The target site's markup is not ours and changes without notice;
// the lists are the only defense.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    *config.Config

	ctx     context.Context
	cancel  context.CancelFunc
	onClose func()
	closed  bool
}

func newSession(allocCtx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	id := uuid.New().String()
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:     id,
		logger: logger.With(zap.String("session_id", id[:8])),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.Browser.DisableCache {
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCacheDisabled(true).Do(ctx)
		}))
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to disable cache: %w", err)
		}
	}
	return s, nil
}

// ID returns the unique identifier for this session.
func (s *Session) ID() string { return s.id }

// Navigate loads a URL, waits for the body, then sleeps the configured
// post-load wait so client-side rendering settles.
func (s *Session) Navigate(url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	navCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Network.NavigationTimeout)
	defer cancel()
	return chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.Network.PostLoadWait),
	)
}

// CurrentURL returns the page's current location.
func (s *Session) CurrentURL() (string, error) {
	var url string
	err := chromedp.Run(s.ctx, chromedp.Location(&url))
	return url, err
}

// Title returns the page title.
func (s *Session) Title() (string, error) {
	var title string
	err := chromedp.Run(s.ctx, chromedp.Title(&title))
	return title, err
}

// tryEach runs fn against each candidate with a per-candidate timeout and
// returns the first selector that succeeds.
func (s *Session) tryEach(what string, candidates []string, fn func(ctx context.Context, sel string) error) (string, error) {
	for _, sel := range candidates {
		attemptCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Network.StepTimeout)
		err := fn(attemptCtx, sel)
		cancel()
		if err == nil {
			s.logger.Debug("Candidate matched", zap.String("what", what), zap.String("selector", sel))
			return sel, nil
		}
		if s.ctx.Err() != nil {
			return "", s.ctx.Err()
		}
		s.logger.Debug("Candidate missed", zap.String("what", what), zap.String("selector", sel), zap.Error(err))
	}
	return "", NoMatchError(what, candidates)
}

// ClickAny clicks the first visible element among the candidates.
func (s *Session) ClickAny(what string, candidates []string) (string, error) {
	return s.tryEach(what, candidates, func(ctx context.Context, sel string) error {
		return chromedp.Run(ctx,
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.ScrollIntoView(sel, chromedp.ByQuery),
			chromedp.Click(sel, chromedp.NodeVisible, chromedp.ByQuery),
		)
	})
}

// TypeAny clears and types into the first visible input among the candidates.
func (s *Session) TypeAny(what string, candidates []string, text string) (string, error) {
	return s.tryEach(what, candidates, func(ctx context.Context, sel string) error {
		return chromedp.Run(ctx,
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.ScrollIntoView(sel, chromedp.ByQuery),
			chromedp.Click(sel, chromedp.NodeVisible, chromedp.ByQuery),
			chromedp.SetValue(sel, "", chromedp.ByQuery),
			chromedp.SendKeys(sel, text, chromedp.ByQuery),
		)
	})
}

// PressEnter sends Enter to the element, typically to commit a search box.
func (s *Session) PressEnter(selector string) error {
	stepCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Network.StepTimeout)
	defer cancel()
	return chromedp.Run(stepCtx, chromedp.SendKeys(selector, "\r", chromedp.ByQuery))
}

// SelectAny picks an option on the first matching <select>. Options are
// matched against the given labels by case-insensitive substring, falling
// back to the option value. Returns the selector and the label that matched.
func (s *Session) SelectAny(what string, candidates []string, labels []string) (string, string, error) {
	var picked string
	sel, err := s.tryEach(what, candidates, func(ctx context.Context, sel string) error {
		script := fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			if (!el || el.tagName !== 'SELECT') return "";
			const labels = %s;
			for (const label of labels) {
				const want = label.toLowerCase();
				for (const opt of el.options) {
					const text = (opt.textContent || "").trim().toLowerCase();
					const value = (opt.value || "").toLowerCase();
					if (text.includes(want) || value.includes(want)) {
						el.value = opt.value;
						el.dispatchEvent(new Event('input', {bubbles: true}));
						el.dispatchEvent(new Event('change', {bubbles: true}));
						return label;
					}
				}
			}
			return "";
		})()`, sel, jsStringArray(labels))

		var matched string
		if err := chromedp.Run(ctx,
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.Evaluate(script, &matched),
		); err != nil {
			return err
		}
		if matched == "" {
			return fmt.Errorf("no option matched labels %v", labels)
		}
		picked = matched
		return nil
	})
	return sel, picked, err
}

// CheckRadioAny checks the first radio among the candidates whose value or
// associated label text matches one of the given labels, in label preference
// order. Returns the selector and the label that matched.
func (s *Session) CheckRadioAny(what string, candidates []string, labels []string) (string, string, error) {
	var picked string
	sel, err := s.tryEach(what, candidates, func(ctx context.Context, sel string) error {
		var matched string
		if err := chromedp.Run(ctx, chromedp.Evaluate(radioPickScript(sel, labels), &matched)); err != nil {
			return err
		}
		if matched == "" {
			return fmt.Errorf("no radio matched labels %v", labels)
		}
		picked = matched
		return nil
	})
	return sel, picked, err
}

// radioPickScript matches radios against option labels by their value, their
// <label for=...> text, and any wrapping <label>.
func radioPickScript(sel string, labels []string) string {
	return fmt.Sprintf(`(() => {
		const radios = document.querySelectorAll(%q);
		const wanted = %s;
		const textFor = (el) => {
			let t = (el.value || "").toLowerCase();
			if (el.id) {
				const lab = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
				if (lab) t += " " + (lab.textContent || "").trim().toLowerCase();
			}
			const wrap = el.closest('label');
			if (wrap) t += " " + (wrap.textContent || "").trim().toLowerCase();
			return t;
		};
		for (const label of wanted) {
			const want = label.toLowerCase();
			for (const el of radios) {
				if (textFor(el).includes(want)) {
					el.scrollIntoView({block: 'center'});
					el.click();
					return label;
				}
			}
		}
		return "";
	})()`, sel, jsStringArray(labels))
}

// ClickByText clicks the first visible button-like element whose text
// contains one of the given strings. This is the fallback of last resort
// when no structural selector holds.
func (s *Session) ClickByText(what string, texts []string) (string, error) {
	stepCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Network.StepTimeout)
	defer cancel()

	script := fmt.Sprintf(`(() => {
		const wanted = %s.map(t => t.toLowerCase());
		const nodes = document.querySelectorAll('button, a, input[type="submit"], input[type="button"], [role="button"]');
		for (const el of nodes) {
			const rect = el.getBoundingClientRect();
			if (rect.width === 0 || rect.height === 0) continue;
			const text = ((el.textContent || el.value || "")).trim().toLowerCase();
			if (!text) continue;
			for (const want of wanted) {
				if (text.includes(want)) {
					el.scrollIntoView({block: 'center'});
					el.click();
					return text;
				}
			}
		}
		return "";
	})()`, jsStringArray(texts))

	var matched string
	if err := chromedp.Run(stepCtx, chromedp.Evaluate(script, &matched)); err != nil {
		return "", err
	}
	if matched == "" {
		return "", NoMatchError(what, texts)
	}
	s.logger.Debug("Clicked by text", zap.String("what", what), zap.String("text", matched))
	return "text:" + matched, nil
}

// UploadAny attaches a file to the first matching file input. File inputs on
// the target form are often hidden behind styled drop zones, so visibility
// is not required.
func (s *Session) UploadAny(what string, candidates []string, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving upload path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	return s.tryEach(what, candidates, func(ctx context.Context, sel string) error {
		return chromedp.Run(ctx,
			chromedp.SetUploadFiles(sel, []string{abs}, chromedp.ByQuery),
		)
	})
}

// ClickElementCenter clicks the geometric center of the first matching
// element. Used against map widgets where the click position, not a control,
// carries the meaning.
func (s *Session) ClickElementCenter(what string, candidates []string) (string, error) {
	return s.tryEach(what, candidates, func(ctx context.Context, sel string) error {
		script := fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			if (!el) return null;
			el.scrollIntoView({block: 'center'});
			const r = el.getBoundingClientRect();
			if (r.width === 0 || r.height === 0) return null;
			return {x: r.left + r.width / 2, y: r.top + r.height / 2};
		})()`, sel)

		var center struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		}
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &center)); err != nil {
			return err
		}
		if center.X == 0 && center.Y == 0 {
			return fmt.Errorf("element %s has no visible box", sel)
		}
		return chromedp.Run(ctx, chromedp.MouseClickXY(center.X, center.Y))
	})
}

// Evaluate runs a JavaScript expression and unmarshals its result into out.
func (s *Session) Evaluate(script string, out interface{}) error {
	stepCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Network.StepTimeout)
	defer cancel()
	return chromedp.Run(stepCtx, chromedp.Evaluate(script, out))
}

// BodyText returns the page's visible text for confirmation scraping.
func (s *Session) BodyText() (string, error) {
	stepCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Network.StepTimeout)
	defer cancel()
	var text string
	err := chromedp.Run(stepCtx, chromedp.Text("body", &text, chromedp.ByQuery))
	return text, err
}

// Screenshot captures a full-page screenshot as PNG bytes.
func (s *Session) Screenshot() ([]byte, error) {
	stepCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Network.StepTimeout)
	defer cancel()
	var buf []byte
	if err := chromedp.Run(stepCtx, chromedp.FullScreenshot(&buf, 85)); err != nil {
		return nil, err
	}
	return buf, nil
}

// WaitSettle sleeps the given duration, respecting session cancellation.
// The target site renders asynchronously with no event to wait on.
func (s *Session) WaitSettle(d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// Close tears down the tab.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	if s.onClose != nil {
		s.onClose()
	}
	s.logger.Debug("Session closed.")
}

// jsStringArray renders a Go string slice as a JavaScript array literal.
func jsStringArray(items []string) string {
	out := "["
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", item)
	}
	return out + "]"
}
