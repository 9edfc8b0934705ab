package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/windriver/driver"
)

// Window is one page target driven over the DevTools protocol.
type Window struct {
	page       *rod.Page
	controlURL string
	logger     *slog.Logger

	mu        sync.Mutex
	devtools  *rod.Page
	terminals []terminalBinding
}

type terminalBinding struct {
	selector string
	term     driver.Terminal
}

var (
	_ driver.Document         = (*Window)(nil)
	_ driver.InputSynthesizer = (*Window)(nil)
	_ driver.WindowController = (*Window)(nil)
)

// Attach wraps the first page whose URL contains target, or the first page
// when target is empty.
func Attach(ctx context.Context, mgr *Manager, target string) (*Window, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list pages: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if target == "" || strings.Contains(info.URL, target) {
			mgr.cfg.Logger.InfoContext(ctx, "browser: attached", "url", info.URL, "target", p.TargetID)
			return newWindow(p, mgr), nil
		}
	}
	return nil, fmt.Errorf("browser: no page matches %q", target)
}

// OpenWindow opens a new page on pageURL. With useStealth the page is
// created with the stealth evasions applied.
func OpenWindow(ctx context.Context, mgr *Manager, pageURL string, useStealth bool) (*Window, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if useStealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.WarnContext(ctx, "browser: wait load timeout", "url", pageURL, "error", err)
	}
	return newWindow(page, mgr), nil
}

func newWindow(p *rod.Page, mgr *Manager) *Window {
	return &Window{page: p, controlURL: mgr.ControlURL(), logger: mgr.cfg.Logger}
}

// AttachTerminal makes elements matching selector report term as their
// terminal, ahead of any emulator found in the page. Later bindings take
// precedence.
func (w *Window) AttachTerminal(selector string, term driver.Terminal) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.terminals = append([]terminalBinding{{selector: selector, term: term}}, w.terminals...)
}

func (w *Window) terminalBindings() []terminalBinding {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]terminalBinding(nil), w.terminals...)
}

// Page exposes the underlying Rod page.
func (w *Window) Page() *rod.Page { return w.page }

// Close closes the devtools page opened for this window, if any. The
// window's own page is left open.
func (w *Window) Close() error {
	w.mu.Lock()
	dt := w.devtools
	w.devtools = nil
	w.mu.Unlock()
	if dt != nil {
		return dt.Close()
	}
	return nil
}

func (w *Window) QuerySelector(ctx context.Context, selector string) (driver.Element, error) {
	has, el, err := w.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	return &element{el: el, w: w}, nil
}

func (w *Window) QuerySelectorAll(ctx context.Context, selector string) ([]driver.Element, error) {
	els, err := w.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrapAll(w, els), nil
}

func (w *Window) Title(ctx context.Context) (string, error) {
	res, err := w.page.Context(ctx).Eval(`() => document.title`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (w *Window) ActiveElement(ctx context.Context) (driver.Element, error) {
	el, err := w.page.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(`() => document.activeElement`))
	return optional(w, el, err)
}

// SendInputEvent dispatches a left-button mouse event at window
// coordinates.
func (w *Window) SendInputEvent(ctx context.Context, ev driver.MouseEvent) error {
	typ := proto.InputDispatchMouseEventTypeMousePressed
	if ev.Type == driver.MouseUp {
		typ = proto.InputDispatchMouseEventTypeMouseReleased
	}
	return proto.InputDispatchMouseEvent{
		Type:       typ,
		X:          float64(ev.X),
		Y:          float64(ev.Y),
		Button:     proto.InputMouseButton(ev.Button),
		ClickCount: ev.ClickCount,
	}.Call(w.page.Context(ctx))
}

// OpenDevTools opens the DevTools frontend inspecting this window: in a
// new window for the "detach" and "undocked" modes, in a new tab otherwise.
func (w *Window) OpenDevTools(ctx context.Context, opts driver.DevToolsOptions) error {
	u, err := inspectorURL(w.controlURL, string(w.page.TargetID))
	if err != nil {
		return err
	}
	newWindow := opts.Mode == "detach" || opts.Mode == "undocked"
	dt, err := w.page.Browser().Context(ctx).Page(proto.TargetCreateTarget{URL: u, NewWindow: newWindow})
	if err != nil {
		return fmt.Errorf("browser: open devtools: %w", err)
	}
	w.mu.Lock()
	old := w.devtools
	w.devtools = dt
	w.mu.Unlock()
	if old != nil {
		old.Close()
	}
	w.logger.InfoContext(ctx, "browser: devtools opened", "target", w.page.TargetID, "mode", opts.Mode)
	return nil
}

// optional maps rod's not-found result of a non-waiting lookup to a nil
// Element.
func optional(w *Window, el *rod.Element, err error) (driver.Element, error) {
	var nf *rod.ElementNotFoundError
	if errors.As(err, &nf) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &element{el: el, w: w}, nil
}

func wrapAll(w *Window, els rod.Elements) []driver.Element {
	out := make([]driver.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el, w: w}
	}
	return out
}

// evalJSON runs js on el; js must return JSON.stringify(...) of a value
// that is decoded into out.
func evalJSON(ctx context.Context, el *rod.Element, out any, js string, args ...any) error {
	res, err := el.Context(ctx).Eval(js, args...)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(res.Value.Str()), out)
}
