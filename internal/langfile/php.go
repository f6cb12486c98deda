// Package langfile reads and writes PHP array language files.
package langfile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"localization-helpers/internal/lemma"
	"localization-helpers/internal/phpstr"
)

// Parse reads the array returned by a PHP language file. An empty file, or a
// file that returns something other than an array, yields an empty tree.
func Parse(src []byte) (lemma.Tree, error) {
	p := &phpParser{src: string(src)}
	p.skipOpenTag()
	p.skipSpace()
	if p.eof() {
		return lemma.Tree{}, nil
	}
	if !p.consumeWord("return") {
		return nil, p.errorf("expected return statement")
	}
	p.skipSpace()
	if !p.peekArray() {
		return lemma.Tree{}, nil
	}
	tree, err := p.parseArray()
	if err != nil {
		return nil, err
	}
	return tree, nil
}

type phpParser struct {
	src string
	pos int
}

func (p *phpParser) errorf(format string, args ...any) error {
	line := 1 + strings.Count(p.src[:p.pos], "\n")
	return fmt.Errorf("parse language file: line %d: %s", line, fmt.Sprintf(format, args...))
}

func (p *phpParser) eof() bool { return p.pos >= len(p.src) }

func (p *phpParser) skipOpenTag() {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "<?php") {
		p.pos += len("<?php")
	}
}

// skipSpace skips whitespace and comments.
func (p *phpParser) skipSpace() {
	for !p.eof() {
		rest := p.src[p.pos:]
		switch {
		case unicode.IsSpace(rune(rest[0])):
			p.pos++
		case strings.HasPrefix(rest, "//"), rest[0] == '#':
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end + 1
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *phpParser) consumeWord(word string) bool {
	rest := p.src[p.pos:]
	if len(rest) < len(word) || !strings.EqualFold(rest[:len(word)], word) {
		return false
	}
	if len(rest) > len(word) && isIdentChar(rest[len(word)]) {
		return false
	}
	p.pos += len(word)
	return true
}

func (p *phpParser) peekArray() bool {
	if p.eof() {
		return false
	}
	if p.src[p.pos] == '[' {
		return true
	}
	save := p.pos
	defer func() { p.pos = save }()
	if !p.consumeWord("array") {
		return false
	}
	p.skipSpace()
	return !p.eof() && p.src[p.pos] == '('
}

func (p *phpParser) parseArray() (lemma.Tree, error) {
	closer := byte(']')
	if p.src[p.pos] == '[' {
		p.pos++
	} else {
		p.consumeWord("array")
		p.skipSpace()
		p.pos++ // (
		closer = ')'
	}

	tree := lemma.Tree{}
	next := 0
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated array")
		}
		if p.src[p.pos] == closer {
			p.pos++
			return tree, nil
		}

		first, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		p.skipSpace()

		var key string
		var value any
		if strings.HasPrefix(p.src[p.pos:], "=>") {
			p.pos += 2
			p.skipSpace()
			k, ok := first.(string)
			if !ok {
				return nil, p.errorf("array key must be a scalar")
			}
			key = k
			if value, err = p.parseValue(); err != nil {
				return nil, err
			}
			if n, err := strconv.Atoi(key); err == nil && n >= next {
				next = n + 1
			}
		} else {
			key = strconv.Itoa(next)
			next++
			value = first
		}
		tree[key] = value

		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case closer:
		default:
			return nil, p.errorf("unexpected %q in array", p.src[p.pos])
		}
	}
}

// parseValue returns a string for scalars and a lemma.Tree for arrays.
func (p *phpParser) parseValue() (any, error) {
	if p.eof() {
		return nil, p.errorf("unexpected end of file")
	}
	if p.peekArray() {
		return p.parseArray()
	}

	c := p.src[p.pos]
	switch {
	case c == '\'' || c == '"':
		end := phpstr.LiteralEnd(p.src[p.pos:])
		if end < 0 {
			return nil, p.errorf("unterminated string")
		}
		lit := p.src[p.pos : p.pos+end]
		p.pos += end
		s, err := phpstr.Unquote(lit)
		if err != nil {
			return nil, p.errorf("%v", err)
		}
		return s, nil
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		start := p.pos
		p.pos++
		for !p.eof() && (isIdentChar(p.src[p.pos]) || p.src[p.pos] == '.') {
			p.pos++
		}
		num := strings.TrimPrefix(p.src[start:p.pos], "+")
		return num, nil
	case isIdentChar(c):
		start := p.pos
		for !p.eof() && (isIdentChar(p.src[p.pos]) || p.src[p.pos] == '\\') {
			p.pos++
		}
		switch word := strings.ToLower(p.src[start:p.pos]); word {
		case "true":
			return "1", nil
		case "false", "null":
			return "", nil
		default:
			return nil, p.errorf("unsupported expression %q", p.src[start:p.pos])
		}
	}
	return nil, p.errorf("unexpected %q", c)
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 0x80 || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}
