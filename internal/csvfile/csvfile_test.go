package csvfile

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestWriter(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		record  []string
		want    string
	}{
		{
			name:    "plain",
			dialect: DefaultDialect,
			record:  []string{"messages.title", "Welcome"},
			want:    "messages.title,Welcome\n",
		},
		{
			name:    "enclosure doubled",
			dialect: DefaultDialect,
			record:  []string{"k", `say "hi", now`},
			want:    "k,\"say \"\"hi\"\", now\"\n",
		},
		{
			name:    "escape prevents doubling",
			dialect: DefaultDialect,
			record:  []string{"k", `a\"b`},
			want:    "k,\"a\\\"b\"\n",
		},
		{
			name:    "custom dialect",
			dialect: Dialect{Delimiter: ';', Enclosure: '\''},
			record:  []string{"k", "it's; fine"},
			want:    "k;'it''s; fine'\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, tt.dialect)
			if err := w.Write(tt.record); err != nil {
				t.Fatalf("Write() error: %v", err)
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush() error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Write() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestReader(t *testing.T) {
	input := "a,b\r\n\"multi\nline\",\"x \"\"y\"\"\"\n\"esc \\\" q\",z\n\nlast,row"
	r := NewReader(strings.NewReader(input), DefaultDialect)

	want := [][]string{
		{"a", "b"},
		{"multi\nline", `x "y"`},
		{`esc \" q`, "z"},
		{""},
		{"last", "row"},
	}
	for i, expected := range want {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("record %d: Read() error: %v", i, err)
		}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("record %d = %q, want %q", i, got, expected)
		}
	}
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReaderUnterminated(t *testing.T) {
	r := NewReader(strings.NewReader(`"open,field`), DefaultDialect)
	if _, err := r.Read(); err == nil {
		t.Error("expected error for unterminated enclosure")
	}
}

func TestRoundTrip(t *testing.T) {
	d := Dialect{Delimiter: '\t', Enclosure: '"', Escape: '\\'}
	records := [][]string{
		{"messages.a", "tab\there"},
		{"messages.b", `quote " inside`},
		{"messages.c", "plain"},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, d)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf, d)
	for i, expected := range records {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("record %d = %q, want %q", i, got, expected)
		}
	}
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect(";", "", "none")
	if err != nil {
		t.Fatalf("ParseDialect() error: %v", err)
	}
	if d.Delimiter != ';' || d.Enclosure != '"' || d.Escape != 0 {
		t.Errorf("ParseDialect() = %+v", d)
	}

	if _, err := ParseDialect(";;", "", ""); err == nil {
		t.Error("expected error for multi-character delimiter")
	}
	if _, err := ParseDialect("'", "'", ""); err == nil {
		t.Error("expected error for identical delimiter and enclosure")
	}
}
