package streamdown

import "unicode/utf8"

// consumeInline is consulted before the block machine for every character.
// It reports whether r was fully handled.
func (p *liveParser) consumeInline(r rune) (bool, error) {
	switch p.inline {
	case Regular:
		return p.openInline(r), nil
	case Em:
		return p.emphasis(r), nil
	case Strong:
		return p.strong(r), nil
	case AfterLinkText, AfterImageAlt:
		return p.afterBracket(r), nil
	case LinkTarget, ImageSource:
		return p.target(r), nil
	default:
		return false, errInvalidInline(p.inline)
	}
}

// textOpen reports whether the current block construct collects text that
// inline constructs may write into.
func (p *liveParser) textOpen() bool {
	return p.state.ownsText() && p.marker == 0
}

func (p *liveParser) openInline(r rune) bool {
	switch r {
	case '*':
		if p.textOpen() {
			p.inline = Em
			p.inlineBuf = p.inlineBuf[:0]
			return true
		}
	case '[':
		if p.state == Free || p.textOpen() {
			if n := len(p.content); p.last == '!' && n > 0 && p.content[n-1] == '!' {
				p.content = p.content[:n-1]
				p.open(ImageAlt)
				return true
			}
			p.open(LinkText)
			return true
		}
	case '`':
		if p.state == Free || p.textOpen() {
			p.openRaw()
			return true
		}
	}
	return false
}

func (p *liveParser) emphasis(r rune) bool {
	switch {
	case r == '*':
		if len(p.inlineBuf) == 0 {
			p.inline = Strong
			return true
		}
		p.writeInline("<em>", p.inlineBuf, "</em>")
		return true
	case r == '\n', isBlank(r) && len(p.inlineBuf) == 0:
		p.degradeInline("*")
		return p.openInline(r)
	}
	p.inlineBuf = utf8.AppendRune(p.inlineBuf, r)
	return true
}

func (p *liveParser) strong(r rune) bool {
	switch {
	case r == '*':
		n := len(p.inlineBuf)
		if p.last == '*' && n > 1 && p.inlineBuf[n-1] == '*' {
			p.writeInline("<strong>", p.inlineBuf[:n-1], "</strong>")
			return true
		}
	case r == '\n', isBlank(r) && len(p.inlineBuf) == 0:
		p.degradeInline("**")
		return p.openInline(r)
	}
	p.inlineBuf = utf8.AppendRune(p.inlineBuf, r)
	return true
}

// afterBracket decides whether captured bracket text becomes a link or image.
// Anything but an immediate opening parenthesis degrades it to literal text.
func (p *liveParser) afterBracket(r rune) bool {
	if r == '(' {
		if p.inline == AfterLinkText {
			p.inline = LinkTarget
		} else {
			p.inline = ImageSource
		}
		p.inlineBuf = p.inlineBuf[:0]
		return true
	}
	p.degradeBracket(false)
	return p.openInline(r)
}

func (p *liveParser) target(r rune) bool {
	switch r {
	case ')':
		if p.inline == LinkTarget {
			p.content = append(p.content, `<a href="`...)
			p.content = append(p.content, p.inlineBuf...)
			p.content = append(p.content, `">`...)
			p.content = append(p.content, p.linkText...)
			p.content = append(p.content, "</a>"...)
		} else {
			p.content = append(p.content, `<img alt="`...)
			p.content = append(p.content, p.linkText...)
			p.content = append(p.content, `" src="`...)
			p.content = append(p.content, p.inlineBuf...)
			p.content = append(p.content, `">`...)
		}
		p.resetInline()
		return true
	case '\n':
		p.degradeBracket(true)
		return p.openInline(r)
	}
	p.inlineBuf = utf8.AppendRune(p.inlineBuf, r)
	return true
}

// writeInline appends a resolved inline element to the owning construct.
func (p *liveParser) writeInline(open string, body []byte, close string) {
	p.content = append(p.content, open...)
	p.content = append(p.content, body...)
	p.content = append(p.content, close...)
	p.resetInline()
}

// degradeInline writes an unresolved emphasis run back as literal text.
func (p *liveParser) degradeInline(marker string) {
	p.content = append(p.content, marker...)
	p.content = append(p.content, p.inlineBuf...)
	p.resetInline()
}

// degradeBracket writes bracket text that never became a link or image back
// as literal text, including a partially captured target.
func (p *liveParser) degradeBracket(withTarget bool) {
	if p.inline == AfterImageAlt || p.inline == ImageSource {
		p.content = append(p.content, '!')
	}
	p.content = append(p.content, '[')
	p.content = append(p.content, p.linkText...)
	p.content = append(p.content, ']')
	if withTarget {
		p.content = append(p.content, '(')
		p.content = append(p.content, p.inlineBuf...)
	}
	p.resetInline()
}

func (p *liveParser) resetInline() {
	p.inline = Regular
	p.inlineBuf = p.inlineBuf[:0]
	p.linkText = p.linkText[:0]
}

// settleInline degrades whatever inline construct is still open at the end
// of the stream.
func (p *liveParser) settleInline() error {
	switch p.inline {
	case Regular:
	case Em:
		p.degradeInline("*")
	case Strong:
		p.degradeInline("**")
	case AfterLinkText, AfterImageAlt:
		p.degradeBracket(false)
	case LinkTarget, ImageSource:
		p.degradeBracket(true)
	default:
		return errInvalidInline(p.inline)
	}
	return nil
}
