package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/windriver/driver"
)

// xtermOf returns the xterm.js Terminal attached to the node itself as
// xterm, _xterm or terminal, or null. Descendants of a terminal container
// do not inherit it.
const xtermOf = `function xtermOf(n) {
	const t = n && (n.xterm || n._xterm || n.terminal);
	return t && t.buffer && t.buffer.active ? t : null;
}`

// xterm adapts an xterm.js terminal attached to an element.
type xterm struct {
	el *rod.Element
}

var _ driver.Terminal = (*xterm)(nil)

func (x *xterm) BufferLines(ctx context.Context) ([]string, error) {
	res, err := x.el.Context(ctx).Eval(`() => { ` + xtermOf + `
		const b = xtermOf(this).buffer.active;
		const out = [];
		for (let i = 0; i < b.length; i++) {
			const line = b.getLine(i);
			out.push(line ? line.translateToString(true) : "");
		}
		return JSON.stringify(out);
	}`)
	if err != nil {
		return nil, fmt.Errorf("browser: terminal buffer: %w", err)
	}
	var lines []string
	if err := json.Unmarshal([]byte(res.Value.Str()), &lines); err != nil {
		return nil, fmt.Errorf("browser: terminal buffer: %w", err)
	}
	return lines, nil
}

func (x *xterm) Input(ctx context.Context, text string) error {
	_, err := x.el.Context(ctx).Eval(`(text) => { `+xtermOf+`
		const t = xtermOf(this);
		if (typeof t.input === "function") { t.input(text, true); return; }
		t._core.coreService.triggerDataEvent(text, true);
	}`, text)
	if err != nil {
		return fmt.Errorf("browser: terminal input: %w", err)
	}
	return nil
}
