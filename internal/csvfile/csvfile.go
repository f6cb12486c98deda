// Package csvfile reads and writes CSV with a configurable delimiter, enclosure
// and escape character, following the conventions of PHP's fgetcsv/fputcsv.
package csvfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Dialect describes the CSV control characters.
type Dialect struct {
	Delimiter byte
	Enclosure byte
	// Escape is the escape character. Zero disables escaping.
	Escape byte
}

// DefaultDialect is comma separated, double-quote enclosed, backslash escaped.
var DefaultDialect = Dialect{Delimiter: ',', Enclosure: '"', Escape: '\\'}

// ParseDialect builds a Dialect from option strings. Empty values fall back to
// DefaultDialect; an empty escape string is only honoured through "none".
func ParseDialect(delimiter, enclosure, escape string) (Dialect, error) {
	d := DefaultDialect
	var err error
	if d.Delimiter, err = single("delimiter", delimiter, d.Delimiter); err != nil {
		return d, err
	}
	if d.Enclosure, err = single("enclosure", enclosure, d.Enclosure); err != nil {
		return d, err
	}
	if escape == "none" {
		d.Escape = 0
	} else if d.Escape, err = single("escape", escape, d.Escape); err != nil {
		return d, err
	}
	if d.Delimiter == d.Enclosure {
		return d, errors.New("delimiter and enclosure must differ")
	}
	return d, nil
}

func single(name, value string, fallback byte) (byte, error) {
	switch len(value) {
	case 0:
		return fallback, nil
	case 1:
		return value[0], nil
	}
	return 0, fmt.Errorf("%s must be a single character, got %q", name, value)
}

// Writer writes CSV records.
type Writer struct {
	w       *bufio.Writer
	dialect Dialect
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer, d Dialect) *Writer {
	return &Writer{w: bufio.NewWriter(w), dialect: d}
}

// Write writes a single record. Fields containing control characters or
// whitespace are enclosed and embedded enclosures doubled.
func (w *Writer) Write(record []string) error {
	for i, field := range record {
		if i > 0 {
			if err := w.w.WriteByte(w.dialect.Delimiter); err != nil {
				return err
			}
		}
		if _, err := w.w.WriteString(w.field(field)); err != nil {
			return err
		}
	}
	return w.w.WriteByte('\n')
}

func (w *Writer) field(s string) string {
	d := w.dialect
	needs := strings.ContainsAny(s, string([]byte{d.Delimiter, d.Enclosure, '\n', '\r', '\t', ' '}))
	if d.Escape != 0 && strings.IndexByte(s, d.Escape) >= 0 {
		needs = true
	}
	if !needs {
		return s
	}

	var b strings.Builder
	b.WriteByte(d.Enclosure)
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case d.Escape != 0 && c == d.Escape && d.Escape != d.Enclosure:
			escaped = true
		case !escaped && c == d.Enclosure:
			b.WriteByte(d.Enclosure)
		default:
			escaped = false
		}
		b.WriteByte(c)
	}
	b.WriteByte(d.Enclosure)
	return b.String()
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader reads CSV records.
type Reader struct {
	r       *bufio.Reader
	dialect Dialect
	line    int
}

// NewReader creates a Reader.
func NewReader(r io.Reader, d Dialect) *Reader {
	return &Reader{r: bufio.NewReader(r), dialect: d}
}

// Read returns the next record, or io.EOF. Blank lines yield a record holding a
// single empty field.
func (r *Reader) Read() ([]string, error) {
	d := r.dialect
	var (
		record   []string
		field    strings.Builder
		inQuotes bool
		started  bool
	)

	for {
		c, err := r.r.ReadByte()
		if errors.Is(err, io.EOF) {
			if !started {
				return nil, io.EOF
			}
			if inQuotes {
				return nil, fmt.Errorf("line %d: unterminated enclosure", r.line+1)
			}
			return append(record, field.String()), nil
		}
		if err != nil {
			return nil, err
		}
		started = true

		if inQuotes {
			switch {
			case d.Escape != 0 && c == d.Escape && d.Escape != d.Enclosure:
				// Escaped characters are kept verbatim, escape included.
				field.WriteByte(c)
				next, err := r.r.ReadByte()
				if err == nil {
					field.WriteByte(next)
				}
			case c == d.Enclosure:
				next, err := r.r.ReadByte()
				if err == nil && next == d.Enclosure {
					field.WriteByte(c)
					continue
				}
				if err == nil {
					_ = r.r.UnreadByte()
				}
				inQuotes = false
			default:
				if c == '\n' {
					r.line++
				}
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case d.Delimiter:
			record = append(record, field.String())
			field.Reset()
		case d.Enclosure:
			if strings.TrimSpace(field.String()) == "" {
				field.Reset()
				inQuotes = true
			} else {
				field.WriteByte(c)
			}
		case '\r':
			// Dropped; \r\n terminates like \n.
		case '\n':
			r.line++
			return append(record, field.String()), nil
		default:
			field.WriteByte(c)
		}
	}
}
