package calculator

import (
	"strings"
)

const ErrorMarker = "Error"

// Keys accepted by Pad.Press.
const Keys = "0123456789+-*/"

// Pad is the running input buffer behind the calculator display.
//
// After Fail the display shows ErrorMarker and the typed input is gone;
// the next key press starts a new buffer.
type Pad struct {
	buf    strings.Builder
	failed bool
}

// Press appends keys to the buffer. It reports false, leaving the buffer
// unchanged, if any rune is not a keypad key.
func (p *Pad) Press(keys string) bool {
	for _, r := range keys {
		if !strings.ContainsRune(Keys, r) {
			return false
		}
	}
	if p.failed {
		p.Clear()
	}
	p.buf.WriteString(keys)
	return true
}

func (p *Pad) Clear() {
	p.buf.Reset()
	p.failed = false
}

// Text is the expression typed so far, or the last result.
func (p *Pad) Text() string {
	if p.failed {
		return ""
	}
	return p.buf.String()
}

// Display is what the calculator screen shows.
func (p *Pad) Display() string {
	if p.failed {
		return ErrorMarker
	}
	return p.buf.String()
}

// Resolve replaces the buffer with result so it can be chained.
func (p *Pad) Resolve(result string) {
	p.Clear()
	p.buf.WriteString(result)
}

func (p *Pad) Fail() {
	p.buf.Reset()
	p.failed = true
}
