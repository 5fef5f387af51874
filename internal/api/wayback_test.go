package api

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildCDXQuery verifies the query string is built correctly
func TestBuildCDXQuery(t *testing.T) {
	tests := []struct {
		domain    string
		resumeKey string
		limit     int
		wantURL   string
	}{
		{domain: "bfl.ai", wantURL: "url=*.bfl.ai"},
		{domain: "  Archive.ORG ", wantURL: "url=*.archive.org"},
		{domain: "x.com", resumeKey: "com,x)/a 2020", limit: 1000, wantURL: "resumeKey=com%2Cx%29%2Fa+2020"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			query := BuildCDXQuery(tt.domain, tt.resumeKey, tt.limit)

			// Verify asterisk is NOT encoded (should be *, not %2A)
			if strings.Contains(strings.ToLower(query), "%2a") {
				t.Errorf("BuildCDXQuery() asterisk is encoded: got %q", query)
			}
			if !strings.Contains(query, tt.wantURL) {
				t.Errorf("BuildCDXQuery() = %q, want to contain %q", query, tt.wantURL)
			}
			if (tt.limit > 0) != strings.Contains(query, "showResumeKey=true") {
				t.Errorf("BuildCDXQuery() = %q, showResumeKey should follow limit=%d", query, tt.limit)
			}
		})
	}
}

// TestURLConstruction verifies the URL is built without double-encoding
func TestURLConstruction(t *testing.T) {
	reqURL := &url.URL{
		Scheme:   "https",
		Host:     "web.archive.org",
		Path:     "/cdx/search/cdx",
		RawQuery: BuildCDXQuery("bfl.ai", "", 0),
	}

	urlStr := reqURL.String()

	if strings.Contains(strings.ToLower(urlStr), "%2a") {
		t.Errorf("URL has encoded asterisk: %s", urlStr)
	}
	if !strings.Contains(urlStr, "url=*.bfl.ai") {
		t.Errorf("URL missing literal asterisk: %s", urlStr)
	}
}

// TestExtractRootDomain tests domain extraction
func TestExtractRootDomain(t *testing.T) {
	tests := []struct {
		input    string
		wantRoot string
		wantErr  bool
	}{
		{"bfl.ai", "bfl.ai", false},
		{"playground.bfl.ai", "bfl.ai", false},
		{"https://playground.bfl.ai/", "bfl.ai", false},
		{"https://www.example.com/path?query=1", "example.com", false},
		{"test.dev.pci.westcoast.acme.com", "acme.com", false},
		{"shop.example.co.uk", "example.co.uk", false},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ExtractRootDomain(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ExtractRootDomain(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.wantRoot {
				t.Errorf("ExtractRootDomain(%q) = %q, want %q", tt.input, got, tt.wantRoot)
			}
		})
	}
}

const cdxBody = `[["original","timestamp","statuscode","mimetype"],
["http://x.com/a?id=1","20200101000000","200","text/html"],
["http://x.com/b","20200102000000","-","-"]
]`

func TestParseCDXResponse(t *testing.T) {
	t.Run("records", func(t *testing.T) {
		resp, err := parseCDXResponse([]byte(`[["original","timestamp","statuscode","mimetype"],
["http://x.com/a?id=1","20200101000000","200","text/html"],
["http://x.com/b","20200102000000","-","-"]]`), "x.com")
		require.NoError(t, err)
		require.Len(t, resp.Records, 2)
		assert.False(t, resp.HasMore)

		first := resp.Records[0]
		assert.Equal(t, "http://x.com/a?id=1", first.URL)
		assert.Equal(t, "x.com", first.Domain)
		require.NotNil(t, first.StatusCode)
		assert.Equal(t, 200, *first.StatusCode)
		require.NotNil(t, first.MimeType)
		assert.Equal(t, "text/html", *first.MimeType)

		assert.Nil(t, resp.Records[1].StatusCode)
		assert.Nil(t, resp.Records[1].MimeType)
	})

	t.Run("resume key", func(t *testing.T) {
		resp, err := parseCDXResponse([]byte(`[["original","timestamp","statuscode","mimetype"],
["http://x.com/a?id=1","20200101000000","200","text/html"],
[],
["com,x)/b 20200102000000"]]`), "x.com")
		require.NoError(t, err)
		assert.Len(t, resp.Records, 1)
		assert.True(t, resp.HasMore)
		assert.Equal(t, "com,x)/b 20200102000000", resp.ResumeKey)
	})

	t.Run("empty body", func(t *testing.T) {
		resp, err := parseCDXResponse([]byte("\n"), "x.com")
		require.NoError(t, err)
		assert.Empty(t, resp.Records)
	})

	t.Run("header only", func(t *testing.T) {
		resp, err := parseCDXResponse([]byte(`[["original","timestamp","statuscode","mimetype"]]`), "x.com")
		require.NoError(t, err)
		assert.Empty(t, resp.Records)
		assert.False(t, resp.HasMore)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := parseCDXResponse([]byte("<html>busy</html>"), "x.com")
		assert.Error(t, err)
	})
}

func newTestClient(t *testing.T, srv *httptest.Server, maxPages int) *WaybackClient {
	t.Helper()
	c, err := NewWaybackClientWithOptions(nil, ClientOptions{
		BaseURL:  srv.URL + "/cdx/search/cdx",
		Timeout:  5 * time.Second,
		MaxPages: maxPages,
	})
	require.NoError(t, err)
	return c
}

func TestFetchDomain_SingleQuery(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Contains(t, r.URL.RawQuery, "url=*.x.com")
		assert.NotContains(t, r.URL.RawQuery, "showResumeKey")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"), "only encodings the client decodes")
		_, _ = w.Write([]byte(cdxBody))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv, 1).FetchDomain(context.Background(), "x.com")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Len(t, records, 2)
	assert.Equal(t, "http://x.com/b", records[1].URL)
}

func TestFetchDomain_Gzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(cdxBody))
		_ = gz.Close()
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv, 1).FetchDomain(context.Background(), "x.com")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFetchDomain_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv, 1).FetchDomain(context.Background(), "x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Empty(t, records)
}

func TestFetchDomain_FollowsResumeKeys(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Contains(t, r.URL.RawQuery, "showResumeKey=true")
		if n == 1 {
			assert.Empty(t, r.URL.Query().Get("resumeKey"))
			_, _ = w.Write([]byte(`[["original","timestamp","statuscode","mimetype"],
["http://x.com/a?id=1","20200101000000","200","text/html"],
[],
["next-page"]]`))
			return
		}
		assert.Equal(t, "next-page", r.URL.Query().Get("resumeKey"))
		_, _ = w.Write([]byte(`[["original","timestamp","statuscode","mimetype"],
["http://x.com/c?q=2","20200101000000","200","text/html"]]`))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv, 5).FetchDomain(context.Background(), "x.com")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, records, 2)
	assert.Equal(t, "http://x.com/c?q=2", records[1].URL)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewTransport_Proxy(t *testing.T) {
	direct, err := NewTransport("")
	require.NoError(t, err)
	assert.NotNil(t, direct)

	socks, err := NewTransport(DefaultProxyAddr)
	require.NoError(t, err)
	assert.Nil(t, socks.Proxy)
	assert.NotNil(t, socks.DialContext)

	assert.Equal(t, "socks5://127.0.0.1:9050", ProxyURL(DefaultProxyAddr))
	assert.Empty(t, ProxyURL(""))
}

// TestFetchCDXIntegration is an integration test that actually calls the API
// Run with: SQLIHUNTER_INTEGRATION=1 go test -v -run TestFetchCDXIntegration ./internal/api/
func TestFetchCDXIntegration(t *testing.T) {
	if os.Getenv("SQLIHUNTER_INTEGRATION") == "" {
		t.Skip("set SQLIHUNTER_INTEGRATION to query the live archive")
	}

	client, err := NewWaybackClientWithOptions(nil, ClientOptions{})
	require.NoError(t, err)
	resp, err := client.FetchCDX(context.Background(), "bfl.ai", "", 50)
	require.NoError(t, err)

	t.Logf("Fetched %d records for bfl.ai, hasMore=%v", len(resp.Records), resp.HasMore)
	assert.NotEmpty(t, resp.Records)
}
