package driver

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"localization-helpers/internal/config"
	"localization-helpers/internal/langfile"
	"localization-helpers/internal/lemma"
)

const oneSkyBaseURL = "https://platform.api.onesky.io/1"

// OneSky uploads and downloads groups through the OneSky platform API.
type OneSky struct {
	name       string
	projectID  string
	apiKey     string
	secret     string
	baseURL    string
	locales    map[string]string
	store      *langfile.Store
	httpClient *http.Client
	retry      RetryConfig
	now        func() time.Time
	messages   *Messages
}

// NewOneSky creates a OneSky driver.
func NewOneSky(name string, cfg config.DriverConfig, deps Deps) (Driver, error) {
	if cfg.ProjectID == "" || cfg.APIKey == "" || cfg.Secret == "" {
		return nil, &DriverError{Message: fmt.Sprintf("Driver [%s] requires project_id, api_key and secret", name)}
	}
	base := cfg.BaseURL
	if base == "" {
		base = oneSkyBaseURL
	}
	return &OneSky{
		name:      name,
		projectID: cfg.ProjectID,
		apiKey:    cfg.APIKey,
		secret:    cfg.Secret,
		baseURL:   strings.TrimRight(base, "/"),
		locales:   cfg.Locales,
		store:     deps.Store,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retry:    DefaultRetryConfig(),
		now:      time.Now,
		messages: NewMessages(),
	}, nil
}

// Messages implements Driver.
func (o *OneSky) Messages() *Messages { return o.messages }

type oneSkyMeta struct {
	Meta struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"meta"`
}

// Put uploads each group as <group>.json. Failures are recorded per group.
func (o *OneSky) Put(ctx context.Context, locale string, groups []string) error {
	for _, group := range groups {
		values, err := GroupValues(o.store, locale, group)
		if err != nil {
			return err
		}
		body, err := json.Marshal(values)
		if err != nil {
			return &DriverError{Message: "JSON encoding failed", Cause: err}
		}

		status, err := o.upload(ctx, locale, group, body)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.messages.AddError("File [%s] upload failed: %v", group, err)
		case status != http.StatusCreated:
			o.messages.AddError("File [%s] upload response status: %d", group, status)
		default:
			o.messages.Add("File [%s] uploaded successfully", group)
		}
	}
	return nil
}

// Get downloads the translations of each group and merges them.
func (o *OneSky) Get(ctx context.Context, locale string, groups []string) error {
	for _, group := range groups {
		data, err := o.export(ctx, locale, group)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.messages.AddError("File [%s] download failed: %v", group, err)
			continue
		}

		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			o.messages.AddError("File [%s] JSON decoding failed: %v", group, err)
			continue
		}

		if err := o.store.Merge(locale, group, flatten(raw)); err != nil {
			return &DriverError{Message: fmt.Sprintf("Cannot write group [%s]", group), Cause: err}
		}
		o.messages.Add("File [%s] imported successfully", group)
	}
	return nil
}

// auth returns the api_key, timestamp and dev_hash parameters.
func (o *OneSky) auth() url.Values {
	ts := strconv.FormatInt(o.now().Unix(), 10)
	sum := md5.Sum([]byte(ts + o.secret))
	return url.Values{
		"api_key":   {o.apiKey},
		"timestamp": {ts},
		"dev_hash":  {hex.EncodeToString(sum[:])},
	}
}

func (o *OneSky) upload(ctx context.Context, locale, group string, content []byte) (int, error) {
	return WithRetry(ctx, o.retry, func() (int, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", group+".json")
		if err != nil {
			return 0, fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(content); err != nil {
			return 0, fmt.Errorf("write form file: %w", err)
		}
		fields := map[string]string{
			"file_format": "HIERARCHICAL_JSON",
			"locale":      remoteLocale(o.locales, locale),
		}
		for _, k := range lemma.SortedKeys(fields) {
			if err := mw.WriteField(k, fields[k]); err != nil {
				return 0, fmt.Errorf("write form field: %w", err)
			}
		}
		if err := mw.Close(); err != nil {
			return 0, fmt.Errorf("close multipart body: %w", err)
		}

		endpoint := fmt.Sprintf("%s/projects/%s/files?%s", o.baseURL, url.PathEscape(o.projectID), o.auth().Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
		if err != nil {
			return 0, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())

		body, status, err := o.do(req)
		if err != nil {
			return 0, err
		}

		var meta oneSkyMeta
		if err := json.Unmarshal(body, &meta); err != nil || meta.Meta.Status == 0 {
			return status, nil
		}
		return meta.Meta.Status, nil
	})
}

func (o *OneSky) export(ctx context.Context, locale, group string) ([]byte, error) {
	return WithRetry(ctx, o.retry, func() ([]byte, error) {
		q := o.auth()
		q.Set("locale", remoteLocale(o.locales, locale))
		q.Set("source_file_name", group+".json")
		endpoint := fmt.Sprintf("%s/projects/%s/translations?%s", o.baseURL, url.PathEscape(o.projectID), q.Encode())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		body, status, err := o.do(req)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, &RemoteError{Status: status, Message: "translation export not available"}
		}
		return body, nil
	})
}

// do sends req and classifies transport and status failures.
func (o *OneSky) do(req *http.Request) ([]byte, int, error) {
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, 0, &RemoteError{Message: "API call", Cause: err, Retryable: req.Context().Err() == nil}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &RemoteError{Message: "read response", Cause: err, Retryable: true}
	}
	if retryableStatus(resp.StatusCode) {
		return nil, resp.StatusCode, &RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body)), Retryable: true}
	}

	log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("OneSky response")
	return body, resp.StatusCode, nil
}
