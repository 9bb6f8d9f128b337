package streamdown

import "strconv"

// ParserState is the block-level automaton state. Exactly one is active.
type ParserState uint8

const (
	Free ParserState = iota
	Text
	StartRaw
	RawDescription
	Raw
	StartTitle
	TitleText
	OrderedListStart
	ListItemText
	ListItemEnd
	LinkText
	ImageAlt
	Deleted
	Quote
)

var parserStateNames = [...]string{
	Free:             "Free",
	Text:             "Text",
	StartRaw:         "StartRaw",
	RawDescription:   "RawDescription",
	Raw:              "Raw",
	StartTitle:       "StartTitle",
	TitleText:        "TitleText",
	OrderedListStart: "OrderedListStart",
	ListItemText:     "ListItemText",
	ListItemEnd:      "ListItemEnd",
	LinkText:         "LinkText",
	ImageAlt:         "ImageAlt",
	Deleted:          "Deleted",
	Quote:            "Quote",
}

func (s ParserState) String() string {
	if int(s) < len(parserStateNames) {
		return parserStateNames[s]
	}
	return "ParserState(" + strconv.Itoa(int(s)) + ")"
}

// ownsText reports whether inline constructs may open inside s and write
// their rendered HTML into its content buffer.
func (s ParserState) ownsText() bool {
	switch s {
	case Text, Quote, ListItemText, TitleText, Deleted:
		return true
	default:
		return false
	}
}

// InlineState overlays ParserState while an inline construct is open.
type InlineState uint8

const (
	Regular InlineState = iota
	AfterLinkText
	LinkTarget
	AfterImageAlt
	ImageSource
	Em
	Strong
)

var inlineStateNames = [...]string{
	Regular:       "Regular",
	AfterLinkText: "AfterLinkText",
	LinkTarget:    "LinkTarget",
	AfterImageAlt: "AfterImageAlt",
	ImageSource:   "ImageSource",
	Em:            "Em",
	Strong:        "Strong",
}

func (s InlineState) String() string {
	if int(s) < len(inlineStateNames) {
		return inlineStateNames[s]
	}
	return "InlineState(" + strconv.Itoa(int(s)) + ")"
}
