package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtractSheetID(t *testing.T) {
	cases := []struct {
		url  string
		id   string
		want bool
	}{
		{"https://docs.google.com/spreadsheets/d/1AbC-xyz_09/edit#gid=0", "1AbC-xyz_09", true},
		{"https://docs.google.com/spreadsheets/d/abc", "abc", true},
		{"https://example.com/sheet?id=abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		id, ok := ExtractSheetID(tc.url)
		if ok != tc.want || id != tc.id {
			t.Errorf("ExtractSheetID(%q) = %q, %v; want %q, %v", tc.url, id, ok, tc.id, tc.want)
		}
	}
}

func TestFetchSheetDecodesValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/spreadsheets/sheet123/values/A1:Z1000" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "gkey" {
			t.Errorf("missing api key in query: %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"Sheet1!A1:Z1000","majorDimension":"ROWS",` +
			`"values":[["Month","Alice","Bob"],["Jan",10,"20"],["Feb",15.5]]}`))
	}))
	defer srv.Close()

	f := NewFetcherWithBaseURL("gkey", 2*time.Second, srv.URL)
	grid, err := f.FetchSheet(context.Background(), "sheet123", "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(grid) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(grid))
	}
	if grid[1][1] != "10" || grid[2][1] != "15.5" || len(grid[2]) != 2 {
		t.Fatalf("unexpected grid %v", grid)
	}
}

func TestFetchSheetWithoutValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"range":"Sheet1!A1:Z1000","majorDimension":"ROWS"}`))
	}))
	defer srv.Close()

	grid, err := NewFetcherWithBaseURL("gkey", time.Second, srv.URL).FetchSheet(context.Background(), "s", "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if grid != nil {
		t.Fatalf("expected nil grid, got %v", grid)
	}
}

func TestFetchSheetNonSuccessCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission"}}`))
	}))
	defer srv.Close()

	_, err := NewFetcherWithBaseURL("gkey", time.Second, srv.URL).FetchSheet(context.Background(), "s", "")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusForbidden || !strings.Contains(fe.Body, "does not have permission") {
		t.Fatalf("unexpected fetch error %+v", fe)
	}
}

func TestFetchSheetTimeoutIsDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewFetcherWithBaseURL("secret-key", 5*time.Second, srv.URL).FetchSheet(ctx, "s", "")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("api key leaked into error: %v", err)
	}
}

func TestFetchSheetMissingKey(t *testing.T) {
	_, err := NewFetcher("", time.Second).FetchSheet(context.Background(), "s", "")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}
