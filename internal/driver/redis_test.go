package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"localization-helpers/internal/lemma"
)

func TestRedisPut(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	deps := testDeps(t)
	seedGroup(t, deps, "en", "messages", lemma.Flat{"a": "A", "b": " B "})
	r := NewRedisFromClient("redis", db, 3600, "test:", deps)

	key := "test:en:messages"
	mock.ExpectTxPipeline()
	mock.ExpectDel(key).SetVal(1)
	mock.ExpectHSet(key, "messages.a", "A", "messages.b", "B").SetVal(2)
	mock.ExpectExpire(key, 3600*time.Second).SetVal(true)
	mock.ExpectTxPipelineExec()

	if err := r.Put(context.Background(), "en", []string{"messages"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
	if infos := r.Messages().Infos(); len(infos) != 1 || infos[0] != "Group [messages] stored in [test:en:messages]" {
		t.Errorf("infos = %v", infos)
	}
}

func TestRedisPutEmptyGroup(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	r := NewRedisFromClient("redis", db, 0, "", testDeps(t))
	if err := r.Put(context.Background(), "en", []string{"missing"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if !r.Messages().HasErrors() {
		t.Error("expected an error message for an empty group")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	deps := testDeps(t)
	r := NewRedisFromClient("redis", db, 0, "", deps)

	mock.ExpectHGetAll("localization:fr:messages").SetVal(map[string]string{
		"messages.title":     "Bonjour",
		"messages.user.name": "Nom",
	})
	mock.ExpectHGetAll("localization:fr:auth").SetVal(map[string]string{})

	if err := r.Get(context.Background(), "fr", []string{"messages", "auth"}); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}

	got, _ := deps.Store.Values("fr", "messages")
	if got["messages.title"] != "Bonjour" || got["messages.user.name"] != "Nom" {
		t.Errorf("merged values = %v", got)
	}
	if r.Messages().ErrorMessage("") != "Key [localization:fr:auth] not found" {
		t.Errorf("errors = %v", r.Messages().Errors())
	}
}

func TestRedisGetFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	r := NewRedisFromClient("redis", db, 0, "", testDeps(t))
	mock.ExpectHGetAll("localization:fr:messages").SetErr(errors.New("connection reset"))

	err := r.Get(context.Background(), "fr", []string{"messages"})
	var de *DriverError
	if !errors.As(err, &de) {
		t.Errorf("expected DriverError, got %v", err)
	}
}
