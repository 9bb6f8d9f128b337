package streamdown

import (
	"fmt"
	"unicode/utf8"
)

const maxSpareBuffers = 8

type liveParser struct {
	cfg config

	state  ParserState
	inline InlineState
	stack  []frame
	spare  [][]byte

	content     []byte
	inlineBuf   []byte
	linkText    []byte
	description []byte
	last        rune

	softBreak     bool
	quoteMarker   bool
	level         int
	marker        rune
	markerOrdered bool
	openTicks     int
	closeTicks    int
	fence         bool

	items           []string
	listTypeOrdered []bool

	out   []string
	slugs slugger
	err   error

	stackArr       [16]frame
	contentArr     [1024]byte
	inlineBufArr   [256]byte
	linkTextArr    [256]byte
	descriptionArr [64]byte
	itemsArr       [32]string
	listTypeArr    [4]bool
	outArr         [16]string
}

func newLiveParser(cfg config) *liveParser {
	p := &liveParser{}
	p.Reset(cfg)
	return p
}

// Reset prepares p for a new stream.
func (p *liveParser) Reset(cfg config) {
	p.cfg = cfg
	p.stack = p.stackArr[:0]
	p.spare = p.spare[:0]
	p.content = p.contentArr[:0]
	p.inlineBuf = p.inlineBufArr[:0]
	p.linkText = p.linkTextArr[:0]
	p.description = p.descriptionArr[:0]
	p.items = p.itemsArr[:0]
	p.listTypeOrdered = p.listTypeArr[:0]
	p.out = p.outArr[:0]
	p.slugs.reset()
	p.last = 0
	p.err = nil
	p.refresh()
}

// feedRune runs one character through both automata and records it as the
// last seen character.
func (p *liveParser) feedRune(r rune) error {
	if p.err != nil {
		return p.err
	}
	if err := p.consume(r); err != nil {
		p.err = err
		logger.Printf("fatal: %v", err)
		return err
	}
	p.last = r
	return nil
}

// consume dispatches r without touching the history. Block handlers call it
// again after they change state so that the new state sees the character.
func (p *liveParser) consume(r rune) error {
	if p.settleLine(r) {
		return nil
	}
	handled, err := p.consumeInline(r)
	if err != nil || handled {
		return err
	}
	return p.consumeBlock(r)
}

// settleLine resolves a remembered single newline. Leading whitespace of the
// following line and one quote marker are swallowed; the first content
// character turns the newline into a joining space.
func (p *liveParser) settleLine(r rune) bool {
	if !p.softBreak {
		return false
	}
	switch r {
	case '\n':
		return false
	case ' ', '\t':
		return true
	case '>':
		if p.state == Quote && !p.quoteMarker {
			p.quoteMarker = true
			return true
		}
	}
	p.softBreak = false
	p.quoteMarker = false
	p.content = append(p.content, ' ')
	return false
}

func (p *liveParser) consumeBlock(r rune) error {
	switch p.state {
	case Free:
		return p.startBlock(r)
	case Text, Quote:
		if r == '\n' {
			if p.softBreak {
				return p.closeCurrent()
			}
			p.softBreak = true
			p.quoteMarker = false
			return nil
		}
		if p.state == Quote && len(p.content) == 0 && isBlank(r) {
			return nil
		}
		return p.appendText(r)
	case StartTitle:
		switch {
		case r == '#':
			p.level++
		case isBlank(r):
			p.state = TitleText
		default:
			for i := 0; i < p.level; i++ {
				p.content = append(p.content, '#')
			}
			p.level = 0
			p.state = Text
			return p.consume(r)
		}
		return nil
	case TitleText:
		if r == '\n' {
			return p.closeCurrent()
		}
		if len(p.content) == 0 && isBlank(r) {
			return nil
		}
		return p.appendText(r)
	case OrderedListStart:
		return p.orderedMarker(r)
	case ListItemText:
		if p.marker != 0 {
			if isBlank(r) {
				return p.confirmItem()
			}
			return p.abandonMarker(r)
		}
		if r == '\n' {
			p.items = append(p.items, trimSpace(p.content))
			p.content = p.content[:0]
			p.state = ListItemEnd
			return nil
		}
		if len(p.content) == 0 && isBlank(r) {
			return nil
		}
		return p.appendText(r)
	case ListItemEnd:
		switch {
		case isBlank(r):
			return nil
		case r == '\n':
			return p.closeCurrent()
		case r == '*' || r == '-':
			p.state = ListItemText
			p.marker = r
			p.markerOrdered = false
			return nil
		case isDigit(r):
			p.state = OrderedListStart
			p.content = append(p.content, byte(r))
			return nil
		}
		if err := p.closeCurrent(); err != nil {
			return err
		}
		return p.consume(r)
	case StartRaw:
		if r == '`' {
			p.openTicks++
			return nil
		}
		if p.resumeState() == Free && p.openTicks >= 3 {
			p.fence = true
			p.state = RawDescription
			return p.consume(r)
		}
		if p.resumeState() == Free {
			p.setResumeState(Text)
		}
		p.state = Raw
		return p.consume(r)
	case RawDescription:
		if r == '\n' {
			p.state = Raw
			return nil
		}
		p.description = utf8.AppendRune(p.description, r)
		return nil
	case Raw:
		if r == '`' {
			p.closeTicks++
			if !p.fence && p.closeTicks == p.openTicks {
				p.closeTicks = 0
				return p.closeCurrent()
			}
			return nil
		}
		if p.fence && p.closeTicks >= p.openTicks {
			// A fence closes on a run at least as long as its opener.
			p.closeTicks = 0
			if err := p.closeCurrent(); err != nil {
				return err
			}
			if r == '\n' {
				return nil
			}
			return p.consume(r)
		}
		p.flushTicks()
		p.content = utf8.AppendRune(p.content, r)
		return nil
	case LinkText, ImageAlt:
		switch r {
		case ']':
			p.linkText = append(p.linkText[:0], p.content...)
			if p.state == LinkText {
				p.inline = AfterLinkText
			} else {
				p.inline = AfterImageAlt
			}
			p.state = p.pop()
			return nil
		case '\n':
			p.unwindBracket()
			return p.consume(r)
		}
		p.content = utf8.AppendRune(p.content, r)
		return nil
	case Deleted:
		switch r {
		case '~':
			if p.last == '~' && len(p.content) > 1 && p.content[len(p.content)-1] == '~' {
				return p.closeCurrent()
			}
		case '\n':
			lit := p.content
			p.state = p.pop()
			p.content = append(p.content, "~~"...)
			p.content = append(p.content, lit...)
			return p.consume(r)
		}
		p.content = utf8.AppendRune(p.content, r)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidState, p.state)
	}
}

// startBlock classifies the first character of a block construct.
func (p *liveParser) startBlock(r rune) error {
	switch {
	case r == '\n' || isBlank(r):
		return nil
	case r == '#':
		p.state = StartTitle
		p.level = 1
		return nil
	case r == '>':
		p.state = Quote
		p.quoteMarker = true
		return nil
	case (r == '*' || r == '-') && p.afterSpace():
		p.state = ListItemText
		p.marker = r
		p.markerOrdered = false
		return nil
	case isDigit(r) && p.afterSpace():
		p.state = OrderedListStart
		p.content = append(p.content, byte(r))
		return nil
	}
	p.state = Text
	return p.consume(r)
}

// appendText adds r to a text-owning construct and opens strikethrough on a
// second consecutive tilde.
func (p *liveParser) appendText(r rune) error {
	if r == '~' && p.state != Deleted && p.last == '~' {
		if n := len(p.content); n > 0 && p.content[n-1] == '~' {
			p.content = p.content[:n-1]
			p.open(Deleted)
			return nil
		}
	}
	p.content = utf8.AppendRune(p.content, r)
	return nil
}

func (p *liveParser) orderedMarker(r rune) error {
	switch {
	case isDigit(r) && p.marker == 0:
		p.content = append(p.content, byte(r))
		return nil
	case r == '.' && p.marker == 0:
		p.marker = '.'
		return nil
	case isBlank(r) && p.marker == '.':
		p.content = p.content[:0]
		p.markerOrdered = true
		return p.confirmItem()
	}
	lit := string(p.content)
	if p.marker == '.' {
		lit += "."
	}
	p.content = p.content[:0]
	p.marker = 0
	if len(p.listTypeOrdered) > 0 {
		p.emitList()
	}
	p.state = Text
	p.content = append(p.content, lit...)
	return p.consume(r)
}

// confirmItem turns a pending marker into a list item, closing the open list
// first when its kind differs.
func (p *liveParser) confirmItem() error {
	ordered := p.markerOrdered
	p.marker = 0
	p.markerOrdered = false
	if n := len(p.listTypeOrdered); n > 0 && p.listTypeOrdered[n-1] != ordered {
		p.emitList()
	}
	if len(p.listTypeOrdered) == 0 {
		p.listTypeOrdered = append(p.listTypeOrdered, ordered)
	}
	p.state = ListItemText
	return nil
}

// abandonMarker turns an unconfirmed bullet into paragraph text. A star
// becomes an emphasis opener, a dash stays literal.
func (p *liveParser) abandonMarker(r rune) error {
	marker := p.marker
	p.marker = 0
	if len(p.listTypeOrdered) > 0 {
		p.emitList()
	}
	p.state = Text
	p.content = p.content[:0]
	if marker == '*' {
		p.inline = Em
		p.inlineBuf = p.inlineBuf[:0]
	} else {
		p.content = utf8.AppendRune(p.content, marker)
	}
	return p.consume(r)
}

// open suspends the current construct and enters nested. Constructs opened
// from Free resume into a paragraph.
func (p *liveParser) open(nested ParserState) {
	resume := p.state
	if resume == Free {
		resume = Text
	}
	p.push(resume)
	p.state = nested
}

// openRaw starts counting a backtick run. The origin is kept as is so that a
// run at block level can still become a fence.
func (p *liveParser) openRaw() {
	p.push(p.state)
	p.state = StartRaw
	p.openTicks = 1
	p.closeTicks = 0
	p.fence = false
}

// flushTicks re-emits a closing run that did not match the opener.
func (p *liveParser) flushTicks() {
	for ; p.closeTicks > 0; p.closeTicks-- {
		p.content = append(p.content, '`')
	}
}

// unwindBracket abandons an open link or image text capture and writes it
// back into the resumed construct as literal text.
func (p *liveParser) unwindBracket() {
	image := p.state == ImageAlt
	lit := p.content
	p.state = p.pop()
	if image {
		p.content = append(p.content, '!')
	}
	p.content = append(p.content, '[')
	p.content = append(p.content, lit...)
}

func (p *liveParser) afterSpace() bool {
	return p.last == 0 || p.last == '\n' || isBlank(p.last)
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func trimSpace(b []byte) string {
	start, end := 0, len(b)
	for start < end && isSpaceByte(b[start]) {
		start++
	}
	for end > start && isSpaceByte(b[end-1]) {
		end--
	}
	return string(b[start:end])
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}
