package filewalker

import (
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

func TestWalk(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, path := range []string{
		"/app/Http/Controllers/HomeController.php",
		"/app/Http/Controllers/notes.txt",
		"/resources/views/home.blade.php",
		"/resources/views/vendor/mail/layout.blade.php",
		"/resources/views/partials/NAV.PHP",
	} {
		if err := afero.WriteFile(fs, path, []byte("<?php"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewWalker(fs, nil, []string{"/resources/views/vendor/**"})
	if err != nil {
		t.Fatalf("NewWalker() error: %v", err)
	}

	files, err := w.Walk([]string{"/resources/views", "/app/Http/Controllers", "/missing", "/resources/views"})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	want := []string{
		"/app/Http/Controllers/HomeController.php",
		"/resources/views/home.blade.php",
		"/resources/views/partials/NAV.PHP",
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Walk() = %v, want %v", files, want)
	}
}

func TestWalkCustomExtensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, path := range []string{"/src/a.vue", "/src/b.js", "/src/c.php"} {
		if err := afero.WriteFile(fs, path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewWalker(fs, []string{".vue", ".JS"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	files, err := w.Walk([]string{"/src"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(files, []string{"/src/a.vue", "/src/b.js"}) {
		t.Errorf("Walk() = %v", files)
	}
}

func TestWalkRejectsFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/file.php", nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w, _ := NewWalker(fs, nil, nil)
	if _, err := w.Walk([]string{"/file.php"}); err == nil {
		t.Error("expected error when a folder is a file")
	}
}

func TestNewWalkerInvalidGlob(t *testing.T) {
	if _, err := NewWalker(afero.NewMemMapFs(), nil, []string{"[unclosed"}); err == nil {
		t.Error("expected error for invalid glob")
	}
}
