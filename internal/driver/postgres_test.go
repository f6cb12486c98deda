package driver

import (
	"context"
	"errors"
	"testing"

	"localization-helpers/internal/lemma"
)

type fakeTranslationStore struct {
	rows   map[string]lemma.Flat
	err    error
	closed bool
}

func (f *fakeTranslationStore) Upsert(ctx context.Context, locale, group string, values lemma.Flat) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.rows == nil {
		f.rows = make(map[string]lemma.Flat)
	}
	f.rows[locale+"/"+group] = values
	return len(values), nil
}

func (f *fakeTranslationStore) Load(ctx context.Context, locale, group string) (lemma.Flat, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[locale+"/"+group], nil
}

func (f *fakeTranslationStore) Close() { f.closed = true }

func TestPostgresPutAndGet(t *testing.T) {
	deps := testDeps(t)
	seedGroup(t, deps, "en", "messages", lemma.Flat{"title": "Welcome", "user.name": "Name"})

	db := &fakeTranslationStore{}
	p := NewPostgresWithStore("db", db, deps)

	if err := p.Put(context.Background(), "en", []string{"messages"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	stored := db.rows["en/messages"]
	if stored["messages.title"] != "Welcome" || stored["messages.user.name"] != "Name" {
		t.Errorf("stored = %v", stored)
	}

	db.rows["fr/messages"] = lemma.Flat{"messages.title": "Bienvenue"}
	if err := p.Get(context.Background(), "fr", []string{"messages", "auth"}); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	got, _ := deps.Store.Values("fr", "messages")
	if got["messages.title"] != "Bienvenue" {
		t.Errorf("merged = %v", got)
	}
	if p.Messages().ErrorMessage("") != "Group [auth] has no stored translations for [fr]" {
		t.Errorf("errors = %v", p.Messages().Errors())
	}

	if err := p.Close(); err != nil || !db.closed {
		t.Error("Close should close the store")
	}
}

func TestPostgresErrors(t *testing.T) {
	db := &fakeTranslationStore{err: errors.New("connection refused")}
	p := NewPostgresWithStore("db", db, testDeps(t))

	var de *DriverError
	if err := p.Put(context.Background(), "en", []string{"messages"}); !errors.As(err, &de) {
		t.Errorf("Put() error = %v", err)
	}
	if err := p.Get(context.Background(), "en", []string{"messages"}); !errors.As(err, &de) {
		t.Errorf("Get() error = %v", err)
	}
}

func TestNewQueriesRejectsUnsafeTable(t *testing.T) {
	for _, table := range []string{"translations; DROP TABLE users", "a-b", "1abc"} {
		if _, err := NewQueries(nil, table); err == nil {
			t.Errorf("NewQueries(%q) should fail", table)
		}
	}
	for _, table := range []string{"", "translations", "i18n.strings"} {
		if _, err := NewQueries(nil, table); err != nil {
			t.Errorf("NewQueries(%q) error: %v", table, err)
		}
	}
}

func TestNewPostgresRequiresDSN(t *testing.T) {
	if _, err := NewPostgres("db", configWithKind("postgres"), testDeps(t)); err == nil {
		t.Error("expected error without dsn")
	}
}
