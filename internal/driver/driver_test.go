package driver

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"localization-helpers/internal/config"
	"localization-helpers/internal/langfile"
	"localization-helpers/internal/lemma"
)

const langRoot = "/srv/app/lang"

func testDeps(t *testing.T) Deps {
	t.Helper()
	fs := afero.NewMemMapFs()
	env := &config.Env{
		Locale:      "en",
		BasePath:    "/srv/app",
		AppPath:     "/srv/app/app",
		PublicPath:  "/srv/app/public",
		StoragePath: "/srv/app/storage",
	}
	return Deps{
		Fs:    fs,
		Store: langfile.NewStore(fs, langRoot, true),
		Paths: config.NewPaths(fs, env),
		Env:   env,
	}
}

func seedGroup(t *testing.T, deps Deps, locale, group string, values lemma.Flat) {
	t.Helper()
	if err := deps.Store.Save(locale, group, lemma.Undot(values)); err != nil {
		t.Fatalf("seed %s/%s: %v", locale, group, err)
	}
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestMessages(t *testing.T) {
	m := NewMessages()
	if m.HasErrors() {
		t.Error("new bag should have no errors")
	}
	if got := m.ErrorMessage("fallback"); got != "fallback" {
		t.Errorf("ErrorMessage() = %q", got)
	}

	m.Add("File [%s] uploaded", "messages")
	m.AddError("File [%s] failed", "auth")
	m.AddError("second")

	if !m.HasErrors() {
		t.Error("expected errors")
	}
	if got := m.ErrorMessage("fallback"); got != "File [auth] failed" {
		t.Errorf("ErrorMessage() = %q", got)
	}
	if !reflect.DeepEqual(m.Infos(), []string{"File [messages] uploaded"}) {
		t.Errorf("Infos() = %v", m.Infos())
	}
	if len(m.All()) != 3 {
		t.Errorf("All() has %d entries", len(m.All()))
	}
}

type fakeDriver struct {
	messages *Messages
	closed   bool
	puts     []string
}

func (f *fakeDriver) Put(ctx context.Context, locale string, groups []string) error {
	f.puts = append(f.puts, locale+":"+strings.Join(groups, ","))
	return nil
}
func (f *fakeDriver) Get(ctx context.Context, locale string, groups []string) error { return nil }
func (f *fakeDriver) Messages() *Messages { return f.messages }
func (f *fakeDriver) Close() error { f.closed = true; return nil }

func TestManager(t *testing.T) {
	opts := config.Defaults()
	opts.Drivers["custom"] = config.DriverConfig{Kind: "fake"}
	opts.Drivers["broken"] = config.DriverConfig{Kind: "nope"}
	opts.Drivers["empty"] = config.DriverConfig{}

	m := NewManager(opts, testDeps(t))

	built := 0
	m.Extend("fake", func(name string, cfg config.DriverConfig, deps Deps) (Driver, error) {
		built++
		if cfg.ExportPath != opts.ExportPath {
			t.Errorf("export path default not applied: %q", cfg.ExportPath)
		}
		return &fakeDriver{messages: NewMessages()}, nil
	})

	first, err := m.Driver("custom")
	if err != nil {
		t.Fatalf("Driver() error: %v", err)
	}
	second, _ := m.Driver("custom")
	if first != second || built != 1 {
		t.Errorf("driver should be cached, built %d times", built)
	}

	m.Forget("custom")
	if _, err := m.Driver("custom"); err != nil || built != 2 {
		t.Errorf("Forget should drop the cached driver, built %d times", built)
	}

	d, _ := m.Driver("custom")
	if err := m.Purge("custom"); err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if !d.(*fakeDriver).closed {
		t.Error("Purge should close the driver")
	}

	tests := []struct {
		name string
		want string
	}{
		{"missing", "Driver [missing] does not have a configuration."},
		{"empty", "Driver [empty] does not have a configuration."},
		{"broken", "Driver [nope] is not supported."},
	}
	for _, tt := range tests {
		if _, err := m.Driver(tt.name); err == nil || err.Error() != tt.want {
			t.Errorf("Driver(%q) error = %v, want %q", tt.name, err, tt.want)
		}
	}
}

func TestManagerDefaultDriver(t *testing.T) {
	m := NewManager(config.Defaults(), testDeps(t))
	if m.DefaultDriver() != "local" {
		t.Errorf("DefaultDriver() = %q", m.DefaultDriver())
	}
	d, err := m.Driver("")
	if err != nil {
		t.Fatalf("Driver(\"\") error: %v", err)
	}
	if _, ok := d.(*Local); !ok {
		t.Errorf("default driver is %T, want *Local", d)
	}
	same, _ := m.Driver("local")
	if d != same {
		t.Error("empty name and default name should share the cached driver")
	}
}

func TestManagerSet(t *testing.T) {
	m := NewManager(config.Defaults(), testDeps(t))
	fake := &fakeDriver{messages: NewMessages()}
	m.Set("stub", fake)
	got, err := m.Driver("stub")
	if err != nil || got != fake {
		t.Errorf("Driver(stub) = %v, %v", got, err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if !fake.closed {
		t.Error("Close should purge every driver")
	}
}

func TestManagerConfigure(t *testing.T) {
	m := NewManager(config.Defaults(), testDeps(t))
	before, err := m.Driver("")
	if err != nil {
		t.Fatalf("Driver() error: %v", err)
	}

	m.Configure("", func(cfg *config.DriverConfig) {
		cfg.Format = "json"
		cfg.ExportPath = "%BASE/out"
	})

	after, err := m.Driver("local")
	if err != nil {
		t.Fatalf("Driver() error: %v", err)
	}
	if before == after {
		t.Fatal("Configure should drop the cached driver")
	}
	local := after.(*Local)
	if local.format != "json" || local.exportPath != "/srv/app/out" {
		t.Errorf("format = %q, export path = %q", local.format, local.exportPath)
	}
}

func TestWithRetry(t *testing.T) {
	calls := 0
	got, err := WithRetry(context.Background(), fastRetry(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &RemoteError{Status: 503, Message: "busy", Retryable: true}
		}
		return "ok", nil
	})
	if err != nil || got != "ok" || calls != 3 {
		t.Errorf("WithRetry() = %q, %v after %d calls", got, err, calls)
	}

	calls = 0
	_, err = WithRetry(context.Background(), fastRetry(), func() (string, error) {
		calls++
		return "", &RemoteError{Status: 400, Message: "bad request"}
	})
	if err == nil || calls != 1 {
		t.Errorf("non-retryable error retried %d times", calls)
	}

	calls = 0
	_, err = WithRetry(context.Background(), fastRetry(), func() (string, error) {
		calls++
		return "", &RemoteError{Status: 500, Retryable: true}
	})
	var remote *RemoteError
	if !errors.As(err, &remote) || calls != 3 {
		t.Errorf("exhausted retries: err=%v calls=%d", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := WithRetry(ctx, fastRetry(), func() (int, error) { return 1, nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context: %v", err)
	}
}
