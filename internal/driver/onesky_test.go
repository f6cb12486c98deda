package driver

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"localization-helpers/internal/config"
	"localization-helpers/internal/lemma"
)

func newOneSky(t *testing.T, deps Deps, baseURL string) *OneSky {
	t.Helper()
	d, err := NewOneSky("onesky", config.DriverConfig{
		Kind:      "onesky",
		ProjectID: "42",
		APIKey:    "public",
		Secret:    "secret",
		BaseURL:   baseURL,
		Locales:   map[string]string{"pt_BR": "pt-BR"},
	}, deps)
	if err != nil {
		t.Fatalf("NewOneSky() error: %v", err)
	}
	o := d.(*OneSky)
	o.retry = fastRetry()
	o.now = func() time.Time { return time.Unix(1700000000, 0) }
	return o
}

func checkAuth(t *testing.T, r *http.Request) {
	t.Helper()
	q := r.URL.Query()
	sum := md5.Sum([]byte("1700000000secret"))
	if q.Get("api_key") != "public" || q.Get("timestamp") != "1700000000" || q.Get("dev_hash") != hex.EncodeToString(sum[:]) {
		t.Errorf("bad auth parameters: %v", q)
	}
}

func TestOneSkyRequiresCredentials(t *testing.T) {
	if _, err := NewOneSky("onesky", config.DriverConfig{ProjectID: "1"}, testDeps(t)); err == nil {
		t.Error("expected error without api_key and secret")
	}
}

func TestOneSkyPut(t *testing.T) {
	deps := testDeps(t)
	seedGroup(t, deps, "pt_BR", "messages", lemma.Flat{"title": "Olá"})
	seedGroup(t, deps, "pt_BR", "auth", lemma.Flat{"failed": "Falhou"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAuth(t, r)
		if r.Method != http.MethodPost || r.URL.Path != "/projects/42/files" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("file_format") != "HIERARCHICAL_JSON" || r.FormValue("locale") != "pt-BR" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		var values map[string]string
		if err := json.Unmarshal(body, &values); err != nil {
			t.Errorf("uploaded file is not JSON: %s", body)
		}

		status := http.StatusCreated
		if header.Filename == "auth.json" {
			status = http.StatusBadRequest
		} else if values["messages.title"] != "Olá" {
			t.Errorf("uploaded values = %v", values)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"meta": map[string]any{"status": status}})
	}))
	defer srv.Close()

	o := newOneSky(t, deps, srv.URL)
	if err := o.Put(context.Background(), "pt_BR", []string{"messages", "auth"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	if infos := o.Messages().Infos(); len(infos) != 1 || infos[0] != "File [messages] uploaded successfully" {
		t.Errorf("infos = %v", infos)
	}
	if got := o.Messages().ErrorMessage(""); got != "File [auth] upload response status: 400" {
		t.Errorf("error = %q", got)
	}
}

func TestOneSkyGetRetriesAndMerges(t *testing.T) {
	deps := testDeps(t)
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAuth(t, r)
		if r.URL.Path != "/projects/42/translations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("source_file_name") != "messages.json" || r.URL.Query().Get("locale") != "fr" {
			t.Errorf("query = %v", r.URL.Query())
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"messages.title": "Bonjour", "messages.user": {"name": "Nom"}}`))
	}))
	defer srv.Close()

	o := newOneSky(t, deps, srv.URL)
	if err := o.Get(context.Background(), "fr", []string{"messages"}); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected one retry, got %d calls", calls)
	}

	got, _ := deps.Store.Values("fr", "messages")
	if got["messages.title"] != "Bonjour" || got["messages.user.name"] != "Nom" {
		t.Errorf("merged values = %v", got)
	}
	if o.Messages().HasErrors() {
		t.Errorf("unexpected errors: %v", o.Messages().Errors())
	}
}

func TestOneSkyGetRecordsFailures(t *testing.T) {
	deps := testDeps(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("source_file_name") {
		case "broken.json":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	o := newOneSky(t, deps, srv.URL)
	if err := o.Get(context.Background(), "fr", []string{"broken", "absent"}); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if n := len(o.Messages().Errors()); n != 2 {
		t.Errorf("expected 2 errors, got %v", o.Messages().Errors())
	}
}
