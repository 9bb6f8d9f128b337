package streamdown

// frame is one resumption stack entry: the state to return to and the
// content buffer it owned when the nested construct opened.
type frame struct {
	state   ParserState
	content []byte
}

// push records resume as the state to return to and hands the current
// content buffer to the frame. The nested construct starts with an empty
// buffer of its own.
func (p *liveParser) push(resume ParserState) {
	p.stack = append(p.stack, frame{state: resume, content: p.content})
	p.content = p.spareBuffer()
}

// pop restores the most recently suspended construct. Popping an empty stack
// yields Free with an empty buffer.
func (p *liveParser) pop() ParserState {
	p.recycle(p.content)
	n := len(p.stack)
	if n == 0 {
		p.content = p.spareBuffer()
		return Free
	}
	top := p.stack[n-1]
	p.stack[n-1] = frame{}
	p.stack = p.stack[:n-1]
	p.content = top.content
	return top.state
}

// resumeState is the state the innermost nested construct will return to.
func (p *liveParser) resumeState() ParserState {
	if n := len(p.stack); n > 0 {
		return p.stack[n-1].state
	}
	return Free
}

func (p *liveParser) setResumeState(s ParserState) {
	if n := len(p.stack); n > 0 {
		p.stack[n-1].state = s
	}
}

func (p *liveParser) spareBuffer() []byte {
	if n := len(p.spare); n > 0 {
		buf := p.spare[n-1]
		p.spare[n-1] = nil
		p.spare = p.spare[:n-1]
		return buf[:0]
	}
	return nil
}

func (p *liveParser) recycle(buf []byte) {
	if cap(buf) == 0 || len(p.spare) >= maxSpareBuffers {
		return
	}
	p.spare = append(p.spare, buf[:0])
}

// refresh resets every buffer and transient field after a block closes.
func (p *liveParser) refresh() {
	for len(p.stack) > 0 {
		p.pop()
	}
	p.state = Free
	p.inline = Regular
	p.content = p.content[:0]
	p.inlineBuf = p.inlineBuf[:0]
	p.linkText = p.linkText[:0]
	p.description = p.description[:0]
	p.level = 0
	p.marker = 0
	p.markerOrdered = false
	p.openTicks = 0
	p.closeTicks = 0
	p.fence = false
	p.softBreak = false
	p.quoteMarker = false
}
