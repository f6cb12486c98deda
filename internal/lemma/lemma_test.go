package lemma

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		encoded string
	}{
		{name: "plain key", input: "messages.welcome", encoded: "messages.welcome"},
		{name: "trailing dot", input: "messages.Good bye.", encoded: "messages.Good bye&#46;"},
		{name: "dot then space", input: "messages.Hello. World", encoded: "messages.Hello&#46; World"},
		{name: "dot then pipe", input: "messages.one.|many", encoded: "messages.one&#46;|many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeKey(tt.input)
			if got != tt.encoded {
				t.Errorf("EncodeKey(%q) = %q, want %q", tt.input, got, tt.encoded)
			}
			if back := DecodeKey(got); back != tt.input {
				t.Errorf("DecodeKey(%q) = %q, want %q", got, back, tt.input)
			}
		})
	}
}

func TestSetReplacesLeavesAndGroups(t *testing.T) {
	tree := Tree{}
	Set(tree, "user.name", "Name")
	Set(tree, "user.name.first", "First")

	if got, ok := Get(tree, "user.name.first"); !ok || got != "First" {
		t.Fatalf("expected nested leaf, got %q (%v)", got, ok)
	}

	Set(tree, "user.name", "Name")
	if got, ok := Get(tree, "user.name"); !ok || got != "Name" {
		t.Fatalf("expected leaf to replace group, got %q (%v)", got, ok)
	}
}

func TestDotAndUndot(t *testing.T) {
	tree := Tree{
		"title": "Title",
		"user": Tree{
			"name":  "Name",
			"empty": Tree{},
			"address": Tree{
				"city": "City",
			},
		},
	}

	flat := Dot(tree)
	want := Flat{
		"title":             "Title",
		"user.name":         "Name",
		"user.address.city": "City",
	}
	if !reflect.DeepEqual(flat, want) {
		t.Fatalf("Dot() = %v, want %v", flat, want)
	}

	if back := Dot(Undot(flat)); !reflect.DeepEqual(back, want) {
		t.Errorf("Dot(Undot()) = %v, want %v", back, want)
	}
}

func TestSortedKeys(t *testing.T) {
	m := map[string]string{"b": "", "10": "", "a": "", "2": ""}
	got := SortedKeys(m)
	want := []string{"2", "10", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedKeys() = %v, want %v", got, want)
	}
}

func TestFamily(t *testing.T) {
	family, rest, ok := Family("messages.user.name")
	if !ok || family != "messages" || rest != "user.name" {
		t.Errorf("Family() = %q, %q, %v", family, rest, ok)
	}
	if _, _, ok := Family("orphan"); ok {
		t.Error("expected orphan lemma to have no family")
	}
}
