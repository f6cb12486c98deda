// Package phpstr decodes and encodes PHP string literals.
package phpstr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrNotLiteral is returned when the input is not exactly one quoted literal.
var ErrNotLiteral = errors.New("not a single PHP string literal")

// LiteralEnd returns the length of the quoted literal at the start of s, or -1
// when the literal is not terminated.
func LiteralEnd(s string) int {
	if s == "" || (s[0] != '\'' && s[0] != '"') {
		return -1
	}
	quote := s[0]
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return -1
}

// Unquote evaluates a single- or double-quoted PHP string literal. Double-quoted
// literals containing variable interpolation are rejected.
func Unquote(lit string) (string, error) {
	lit = strings.TrimSpace(lit)
	if LiteralEnd(lit) != len(lit) {
		return "", fmt.Errorf("%w: %s", ErrNotLiteral, lit)
	}
	body := lit[1 : len(lit)-1]
	if lit[0] == '\'' {
		return unquoteSingle(body), nil
	}
	return unquoteDouble(body)
}

func unquoteSingle(body string) string {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) && (body[i+1] == '\\' || body[i+1] == '\'') {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}

func unquoteDouble(body string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '$' && i+1 < len(body) && (body[i+1] == '{' || body[i+1] == '_' || isAlpha(body[i+1])) {
			return "", fmt.Errorf("%w: variable interpolation", ErrNotLiteral)
		}
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := body[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'v':
			b.WriteByte('\v')
		case 'e':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case '\\', '$', '"':
			b.WriteByte(e)
		case 'x':
			j := i + 1
			for j < len(body) && j < i+3 && isHex(body[j]) {
				j++
			}
			if j == i+1 {
				b.WriteString(`\x`)
				continue
			}
			n, _ := strconv.ParseUint(body[i+1:j], 16, 8)
			b.WriteByte(byte(n))
			i = j - 1
		case 'u':
			if i+1 < len(body) && body[i+1] == '{' {
				end := strings.IndexByte(body[i:], '}')
				if end > 2 {
					n, err := strconv.ParseUint(body[i+2:i+end], 16, 32)
					if err == nil && utf8.ValidRune(rune(n)) {
						b.WriteRune(rune(n))
						i += end
						continue
					}
				}
			}
			b.WriteString(`\u`)
		default:
			if e >= '0' && e <= '7' {
				j := i
				for j < len(body) && j < i+3 && body[j] >= '0' && body[j] <= '7' {
					j++
				}
				n, _ := strconv.ParseUint(body[i:j], 8, 16)
				b.WriteByte(byte(n))
				i = j - 1
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String(), nil
}

// Quote renders s as a single-quoted PHP literal, the way var_export does.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
