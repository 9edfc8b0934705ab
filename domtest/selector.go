package domtest

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Supported selector subset:
//   - tag, "*": "div", "textarea"
//   - #id, .class (repeatable), [attr], [attr=val], [attr="val"]
//   - compounds: "div.editor#main[role=textbox]"
//   - descendant and child combinators: ".a .b", ".a > .b"
//   - groups: "input, textarea"

type attrSel struct {
	key    string
	val    string
	hasVal bool
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrSel
}

// complexSel is a chain of compounds; combs[i] joins parts[i] and
// parts[i+1] and is ' ' (descendant) or '>' (child).
type complexSel struct {
	parts []compound
	combs []byte
}

// selectorList is a comma-separated group.
type selectorList []complexSel

func parseSelector(s string) (selectorList, error) {
	var list selectorList
	for _, g := range strings.Split(s, ",") {
		cs, err := parseComplex(g)
		if err != nil {
			return nil, fmt.Errorf("domtest: selector %q: %w", s, err)
		}
		list = append(list, cs)
	}
	return list, nil
}

func parseComplex(s string) (complexSel, error) {
	var cs complexSel
	var comb byte
	i := 0
	for {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}
		if s[i] == '>' {
			if len(cs.parts) == 0 || comb == '>' {
				return cs, fmt.Errorf("misplaced '>'")
			}
			comb = '>'
			i++
			continue
		}
		c, n, err := parseCompound(s[i:])
		if err != nil {
			return cs, err
		}
		i += n
		if len(cs.parts) > 0 {
			if comb == 0 {
				comb = ' '
			}
			cs.combs = append(cs.combs, comb)
		}
		cs.parts = append(cs.parts, c)
		comb = 0
	}
	if len(cs.parts) == 0 {
		return cs, fmt.Errorf("empty selector")
	}
	if comb != 0 {
		return cs, fmt.Errorf("dangling combinator")
	}
	return cs, nil
}

func parseCompound(s string) (compound, int, error) {
	var c compound
	i := 0
	if s[0] == '*' {
		i = 1
	} else {
		n := identLen(s)
		c.tag = strings.ToLower(s[:n])
		i = n
	}
	for i < len(s) {
		switch s[i] {
		case '#', '.':
			n := identLen(s[i+1:])
			if n == 0 {
				return c, 0, fmt.Errorf("empty name after %q", s[i])
			}
			name := s[i+1 : i+1+n]
			if s[i] == '#' {
				c.id = name
			} else {
				c.classes = append(c.classes, name)
			}
			i += 1 + n
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, 0, fmt.Errorf("unterminated attribute selector")
			}
			body := strings.TrimSpace(s[i+1 : i+end])
			var a attrSel
			if k, v, ok := strings.Cut(body, "="); ok {
				a = attrSel{key: strings.ToLower(strings.TrimSpace(k)), val: strings.Trim(strings.TrimSpace(v), `"'`), hasVal: true}
			} else {
				a = attrSel{key: strings.ToLower(body)}
			}
			if a.key == "" {
				return c, 0, fmt.Errorf("empty attribute name")
			}
			c.attrs = append(c.attrs, a)
			i += end + 1
		case ' ', '\t', '\n', '\r', '\f', '>':
			return c, i, nil
		default:
			return c, 0, fmt.Errorf("unsupported syntax at %q", s[i:])
		}
	}
	if i == 0 {
		return c, 0, fmt.Errorf("empty compound")
	}
	return c, i, nil
}

func identLen(s string) int {
	n := 0
	for n < len(s) {
		b := s[n]
		if b >= 0x80 || b == '-' || b == '_' ||
			(b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') {
			n++
			continue
		}
		break
	}
	return n
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func (l selectorList) matches(n *html.Node) bool {
	for _, cs := range l {
		if cs.matchAt(n, len(cs.parts)-1) {
			return true
		}
	}
	return false
}

func (cs complexSel) matchAt(n *html.Node, idx int) bool {
	if !cs.parts[idx].matches(n) {
		return false
	}
	if idx == 0 {
		return true
	}
	if cs.combs[idx-1] == '>' {
		p := parentElement(n)
		return p != nil && cs.matchAt(p, idx-1)
	}
	for p := parentElement(n); p != nil; p = parentElement(p) {
		if cs.matchAt(p, idx-1) {
			return true
		}
	}
	return false
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && getAttr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range c.classes {
			found := false
			for _, h := range have {
				if h == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		v, ok := lookupAttr(n, a.key)
		if !ok || (a.hasVal && v != a.val) {
			return false
		}
	}
	return true
}

// querySelectorAll returns matching elements under root in document order.
func querySelectorAll(root *html.Node, l selectorList, firstOnly bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if l.matches(n) {
			out = append(out, n)
			if firstOnly {
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(root)
	return out
}

func parentElement(n *html.Node) *html.Node {
	if p := n.Parent; p != nil && p.Type == html.ElementNode {
		return p
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func collectText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
