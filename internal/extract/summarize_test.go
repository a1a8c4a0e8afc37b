package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeStrategy_UsesSummary(t *testing.T) {
	var got summarizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"summary_text":"Acme needs a platform engineer to run Kubernetes clusters."}]`))
	}))
	defer srv.Close()

	s := NewSummarizeStrategy(srv.URL, "hf-token", time.Second, nil)
	text := strings.Repeat("word   ", 400)

	posting, outcome := s.Structure(context.Background(), text, Metadata{Title: "Platform Engineer", Company: "Acme"})

	assert.Equal(t, OutcomeExtracted, outcome)
	assert.Equal(t, Posting{
		Title:       "Platform Engineer",
		Company:     "Acme",
		Location:    Unknown,
		JobType:     Unknown,
		Description: "Acme needs a platform engineer to run Kubernetes clusters.",
	}, posting)
	assert.Equal(t, summarizeParameters{MaxLength: 130, MinLength: 30, DoSample: false}, got.Parameters)
	assert.LessOrEqual(t, len(got.Inputs), summaryInputChars)
	assert.NotContains(t, got.Inputs, "  ")
}

func TestSummarizeStrategy_FallsBackToPrefix(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"short summary": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"summary_text":"Too short."}]`))
		},
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		},
		"empty list": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			s := NewSummarizeStrategy(srv.URL, "", time.Second, nil)
			text := filler(500)

			posting, outcome := s.Structure(context.Background(), text, Metadata{Title: "T", Company: "C"})

			assert.Equal(t, OutcomeFallback, outcome)
			assert.Equal(t, text[:rawPrefixChars], posting.Description)
			assert.Equal(t, Unknown, posting.Location)
		})
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			http.NotFound(w, r)
			return
		}
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html><h1>Hi</h1></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, true)

	html, err := f.Fetch(context.Background(), srv.URL+"/job")
	require.NoError(t, err)
	assert.Equal(t, "<html><h1>Hi</h1></html>", html)

	_, err = f.Fetch(context.Background(), srv.URL+"/gone")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestExtract_WrapsFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewExtractor(NewHTTPFetcher(time.Second, true), &recordingStrategy{}, nil)
	_, err := e.Extract(context.Background(), srv.URL)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestHTTPFetcher_BlocksNonPublicAddresses(t *testing.T) {
	var hits int
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("metadata"))
	}))
	defer internal.Close()

	f := NewHTTPFetcher(time.Second, false)
	_, err := f.Fetch(context.Background(), internal.URL+"/latest/meta-data")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Zero(t, hits)

	_, err = f.Fetch(context.Background(), "http://169.254.169.254/latest/meta-data")
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestDialControl(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:80", "10.1.2.3:443", "192.168.0.10:80", "169.254.169.254:80", "100.64.0.1:80", "[::1]:80", "[fe80::1]:80", "0.0.0.0:80"} {
		assert.ErrorIs(t, dialControl("tcp", addr, nil), ErrBlockedAddress, addr)
	}
	for _, addr := range []string{"93.184.216.34:443", "[2606:4700::1111]:443"} {
		assert.NoError(t, dialControl("tcp", addr, nil), addr)
	}
}

func TestCheckPublicHost(t *testing.T) {
	assert.ErrorIs(t, checkPublicHost(context.Background(), "http://127.0.0.1:8080/job"), ErrBlockedAddress)
	assert.ErrorIs(t, checkPublicHost(context.Background(), "http://[::1]/job"), ErrBlockedAddress)
	assert.NoError(t, checkPublicHost(context.Background(), "https://93.184.216.34/job"))
}
