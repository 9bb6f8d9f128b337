package streamdown

import (
	"fmt"
	"strconv"
	"strings"
)

func errInvalidInline(s InlineState) error {
	return fmt.Errorf("%w: inline %s", ErrInvalidState, s)
}

// closeCurrent is the single closing procedure. Block constructs append a
// fragment to the output and reset the parser; nested constructs render into
// the content buffer of the construct they resume.
func (p *liveParser) closeCurrent() error {
	switch p.state {
	case Text:
		if body := trimSpace(p.content); body != "" {
			p.emit("<p>" + body + "</p>")
		}
		p.refresh()
	case Quote:
		if body := trimSpace(p.content); body != "" {
			p.emit("<blockquote><p>" + body + "</p></blockquote>")
		}
		p.refresh()
	case TitleText:
		p.emit(p.heading(trimSpace(p.content)))
		p.refresh()
	case ListItemText:
		p.items = append(p.items, trimSpace(p.content))
		p.emitList()
		p.refresh()
	case ListItemEnd:
		p.emitList()
		p.refresh()
	case Raw, RawDescription:
		if p.fence {
			if p.closeTicks >= p.openTicks {
				p.closeTicks = 0
			}
			p.emit(p.codeBlock())
			p.refresh()
			return nil
		}
		p.flushTicks()
		body := string(p.content)
		p.state = p.pop()
		p.closeTicks = 0
		p.openTicks = 0
		p.content = append(p.content, "<code>"...)
		p.content = append(p.content, body...)
		p.content = append(p.content, "</code>"...)
	case Deleted:
		body := p.content
		if n := len(body); n > 0 && body[n-1] == '~' {
			body = body[:n-1]
		}
		html := "<del>" + string(body) + "</del>"
		p.state = p.pop()
		p.content = append(p.content, html...)
	default:
		return fmt.Errorf("%w: cannot close %s", ErrInvalidState, p.state)
	}
	return nil
}

func (p *liveParser) heading(body string) string {
	level := strconv.Itoa(p.level)
	if p.cfg.headingIDs {
		return "<h" + level + ` id="` + p.slugs.slug(body) + `">` + body + "</h" + level + ">"
	}
	return "<h" + level + ">" + body + "</h" + level + ">"
}

func (p *liveParser) codeBlock() string {
	var b strings.Builder
	b.WriteString("<pre><code")
	if lang := fenceLanguage(string(p.description)); lang != "" {
		b.WriteString(` class="`)
		b.WriteString(p.cfg.languagePrefix)
		b.WriteString(lang)
		b.WriteString(`"`)
	}
	b.WriteString(">")
	p.flushTicks()
	b.WriteString(strings.TrimSuffix(string(p.content), "\n"))
	b.WriteString("</code></pre>")
	return b.String()
}

func fenceLanguage(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// emitList renders the accumulated items with the innermost list kind and
// clears the accumulator.
func (p *liveParser) emitList() {
	ordered := false
	if n := len(p.listTypeOrdered); n > 0 {
		ordered = p.listTypeOrdered[n-1]
		p.listTypeOrdered = p.listTypeOrdered[:n-1]
	}
	if len(p.items) == 0 {
		return
	}
	tag := "ul"
	if ordered {
		tag = "ol"
	}
	var b strings.Builder
	b.WriteString("<" + tag + ">")
	for _, item := range p.items {
		b.WriteString("<li>")
		b.WriteString(item)
		b.WriteString("</li>")
	}
	b.WriteString("</" + tag + ">")
	p.items = p.items[:0]
	p.emit(b.String())
}

func (p *liveParser) emit(html string) {
	p.out = append(p.out, html)
}

// takeOutput returns the fragments completed since the last call as one
// string, or "" when nothing completed.
func (p *liveParser) takeOutput() string {
	var html string
	switch len(p.out) {
	case 0:
		return ""
	case 1:
		html = p.out[0]
	default:
		html = strings.Join(p.out, "")
	}
	for i := range p.out {
		p.out[i] = ""
	}
	p.out = p.out[:0]
	return html
}

// finalize force-closes whatever is still open at the end of the stream:
// inline captures degrade, nested constructs unwind into the construct they
// interrupted and the remaining block closes by the normal rules.
func (p *liveParser) finalize() error {
	if p.err != nil {
		return p.err
	}
	if err := p.settleInline(); err != nil {
		p.err = err
		return err
	}
	for len(p.stack) > 0 && !p.fence {
		switch p.state {
		case LinkText, ImageAlt:
			p.unwindBracket()
		case StartRaw:
			ticks := p.openTicks
			p.state = p.pop()
			if p.state == Free {
				p.state = Text
			}
			for ; ticks > 0; ticks-- {
				p.content = append(p.content, '`')
			}
			p.openTicks = 0
		case Raw, Deleted:
			if err := p.closeCurrent(); err != nil {
				p.err = err
				return err
			}
		default:
			p.err = fmt.Errorf("%w: %s is not nested", ErrInvalidState, p.state)
			return p.err
		}
		if err := p.settleInline(); err != nil {
			p.err = err
			return err
		}
	}
	switch p.state {
	case Free:
		if len(p.content) > 0 {
			p.emit(string(p.content))
		}
		p.refresh()
	case StartTitle:
		p.content = append(p.content, strings.Repeat("#", p.level)...)
		p.state = Text
		return p.closeCurrent()
	case OrderedListStart:
		if p.marker == '.' {
			p.content = append(p.content, '.')
		}
		p.marker = 0
		if len(p.listTypeOrdered) > 0 {
			p.emitList()
		}
		p.state = Text
		return p.closeCurrent()
	case ListItemText:
		if p.marker != 0 {
			marker := p.marker
			p.marker = 0
			if len(p.listTypeOrdered) > 0 {
				p.emitList()
			}
			p.content = append(p.content[:0], string(marker)...)
			p.state = Text
		}
		return p.closeCurrent()
	default:
		return p.closeCurrent()
	}
	return nil
}
