package event

import (
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	byteEsc = 0x1b
	byteDel = 0x7f
)

var arrowKeys = map[byte]tea.KeyType{
	'A': tea.KeyUp,
	'B': tea.KeyDown,
	'C': tea.KeyRight,
	'D': tea.KeyLeft,
}

// decodeKeys turns one raw read from the terminal into keypresses.
// An escape sequence split across two reads decodes as a lone escape
// followed by runes.
func decodeKeys(b []byte) []tea.Key {
	var out []tea.Key
	for len(b) > 0 {
		c := b[0]
		switch {
		case c == byteEsc:
			if len(b) >= 3 && (b[1] == '[' || b[1] == 'O') {
				if t, ok := arrowKeys[b[2]]; ok {
					out = append(out, tea.Key{Type: t})
					b = b[3:]
					continue
				}
			}
			out = append(out, tea.Key{Type: tea.KeyEscape})
			b = b[1:]
		case c == '\r' || c == '\n':
			out = append(out, tea.Key{Type: tea.KeyEnter})
			b = b[1:]
		case c == '\t':
			out = append(out, tea.Key{Type: tea.KeyTab})
			b = b[1:]
		case c == byteDel || c == '\b':
			out = append(out, tea.Key{Type: tea.KeyBackspace})
			b = b[1:]
		case c == ' ':
			out = append(out, tea.Key{Type: tea.KeySpace, Runes: []rune{' '}})
			b = b[1:]
		case c < 0x20:
			// Control bytes share their values with bubbletea's ctrl key types.
			out = append(out, tea.Key{Type: tea.KeyType(c)})
			b = b[1:]
		default:
			r, size := utf8.DecodeRune(b)
			if r == utf8.RuneError && size <= 1 {
				b = b[1:]
				continue
			}
			out = append(out, tea.Key{Type: tea.KeyRunes, Runes: []rune{r}})
			b = b[size:]
		}
	}
	return out
}
