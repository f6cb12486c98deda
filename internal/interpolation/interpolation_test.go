package interpolation

import (
	"reflect"
	"testing"
)

func TestProtect(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      string
		originals []string
	}{
		{"none", "Hello world", "Hello world", nil},
		{"laravel", "Welcome, :name! You have :count messages.", "Welcome, {{var_1}}! You have {{var_2}} messages.", []string{":name", ":count"}},
		{"plural", "{0} No apples|[1,19] Some|[20,*] Many", "{{var_1}} No apples|{{var_2}} Some|{{var_3}} Many", []string{"{0}", "[1,19]", "[20,*]"}},
		{"printf", "%s of %d (100%%)", "{{var_1}} of {{var_2}} (100{{var_3}})", []string{"%s", "%d", "%%"}},
		{"html", "Click <a href=\"/x\">here</a>", "Click {{var_1}}here{{var_2}}", []string{"<a href=\"/x\">", "</a>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mappings := Protect(tt.in)
			if got != tt.want {
				t.Errorf("Protect() = %q, want %q", got, tt.want)
			}
			var originals []string
			for _, m := range mappings {
				originals = append(originals, m.Original)
			}
			if !reflect.DeepEqual(originals, tt.originals) {
				t.Errorf("originals = %v, want %v", originals, tt.originals)
			}
			if back := Restore(got, mappings); back != tt.in {
				t.Errorf("Restore() = %q, want %q", back, tt.in)
			}
		})
	}
}

func TestRestoreReordered(t *testing.T) {
	_, mappings := Protect(":a before :b")
	got := Restore("{{var_2}} après {{var_1}}", mappings)
	if got != ":b après :a" {
		t.Errorf("Restore() = %q", got)
	}
}

func TestMissing(t *testing.T) {
	_, mappings := Protect("Hi :name, see :link")
	got := Missing("Salut {{var_1}}", mappings)
	if !reflect.DeepEqual(got, []string{":link"}) {
		t.Errorf("Missing() = %v", got)
	}
}
