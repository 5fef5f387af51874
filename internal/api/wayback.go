package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/sqlihunter/internal/models"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultCDXBaseURL = "https://web.archive.org/cdx/search/cdx"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	cdxTimeout   = 180 * time.Second // 3 minutes for large domain queries
	cdxBatchSize = 1000              // records per page when following resume keys
)

// ClientOptions configures a WaybackClient
type ClientOptions struct {
	BaseURL   string        // CDX endpoint, defaults to DefaultCDXBaseURL
	Timeout   time.Duration // per request
	UserAgent string
	ProxyAddr string // SOCKS5 host:port, empty for a direct connection
	// MaxPages caps how many resume-key pages FetchDomain follows.
	// 1 (the default) issues a single unpaginated listing query.
	MaxPages  int
	PageDelay time.Duration // sleep between pages of the same domain
}

// WaybackClient handles Wayback Machine CDX API requests
type WaybackClient struct {
	httpClient *http.Client
	logger     *log.Logger
	opts       ClientOptions
}

// NewWaybackClientWithOptions creates a client, routing traffic through a
// SOCKS5 proxy when opts.ProxyAddr is set
func NewWaybackClientWithOptions(logger *log.Logger, opts ClientOptions) (*WaybackClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultCDXBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = cdxTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}

	transport, err := NewTransport(opts.ProxyAddr)
	if err != nil {
		return nil, err
	}

	return &WaybackClient{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		logger: logger,
		opts:   opts,
	}, nil
}

// ExtractRootDomain extracts the root domain from a URL or hostname
// Uses publicsuffix to handle complex TLDs like .co.uk
// Examples:
//   - "https://playground.bfl.ai/" -> "bfl.ai"
//   - "test1.dev.pci.westcoast.acme.com" -> "acme.com"
//   - "bfl.ai" -> "bfl.ai"
func ExtractRootDomain(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty input")
	}

	// If it looks like a URL, parse it
	if strings.Contains(input, "://") {
		parsed, err := url.Parse(input)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		input = parsed.Hostname()
	}

	input = strings.TrimSuffix(input, ".")

	rootDomain, err := publicsuffix.EffectiveTLDPlusOne(input)
	if err != nil {
		return "", fmt.Errorf("failed to extract root domain: %w", err)
	}

	return rootDomain, nil
}

// BuildCDXQuery constructs the raw query string for CDX API
// Returns the query string WITHOUT the leading '?'
// The asterisk wildcard must NOT be URL-encoded for the CDX API.
// limit <= 0 requests the whole listing in one response; a positive limit
// asks the archive for a resume key so the next page can be requested.
func BuildCDXQuery(domain string, resumeKey string, limit int) string {
	domain = strings.ToLower(strings.TrimSpace(domain))

	// *.domain = matchType=domain: the host itself plus every subdomain.
	// Cannot be combined with a trailing /* wildcard.
	query := fmt.Sprintf(
		"url=*.%s&output=json&fl=original,timestamp,statuscode,mimetype&collapse=urlkey",
		domain,
	)

	if limit > 0 {
		query += fmt.Sprintf("&limit=%d&showResumeKey=true", limit)
	}
	if resumeKey != "" {
		query += "&resumeKey=" + url.QueryEscape(resumeKey)
	}

	return query
}

// FetchCDX fetches one page of CDX records for a domain
func (c *WaybackClient) FetchCDX(ctx context.Context, domain string, resumeKey string, limit int) (*models.CDXResponse, error) {
	// Raw URL string keeps the asterisk literal - url.URL would encode it
	rawURL := c.opts.BaseURL + "?" + BuildCDXQuery(domain, resumeKey, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Referer", "https://web.archive.org/")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip")

	if c.logger != nil {
		c.logger.Debug("CDX request", "url", rawURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("CDX API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Setting Accept-Encoding by hand disables the transport's transparent
	// decompression, so gzip bodies are handled here
	var reader io.Reader = resp.Body
	contentEncoding := strings.ToLower(resp.Header.Get("Content-Encoding"))
	if strings.Contains(contentEncoding, "gzip") {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseCDXResponse(body, domain)
}

// FetchDomain returns every record the archive holds for domain and its
// subdomains. With the default options this is exactly one request.
func (c *WaybackClient) FetchDomain(ctx context.Context, domain string) ([]models.CDXRecord, error) {
	if c.opts.MaxPages <= 1 {
		resp, err := c.FetchCDX(ctx, domain, "", 0)
		if err != nil {
			return nil, err
		}
		if c.logger != nil {
			c.logger.Debug("CDX listing fetched", "domain", domain, "records", len(resp.Records))
		}
		return resp.Records, nil
	}

	var allRecords []models.CDXRecord
	resumeKey := ""

	for page := 1; page <= c.opts.MaxPages; page++ {
		resp, err := c.FetchCDX(ctx, domain, resumeKey, cdxBatchSize)
		if err != nil {
			if len(allRecords) > 0 {
				return allRecords, fmt.Errorf("page %d: %w", page, err)
			}
			return nil, err
		}

		allRecords = append(allRecords, resp.Records...)

		if c.logger != nil {
			c.logger.Debug("CDX page fetched", "domain", domain, "page", page, "pageRecords", len(resp.Records), "totalRecords", len(allRecords), "hasMore", resp.HasMore)
		}

		if !resp.HasMore || resp.ResumeKey == "" {
			return allRecords, nil
		}
		resumeKey = resp.ResumeKey

		if page < c.opts.MaxPages && c.opts.PageDelay > 0 {
			if err := Sleep(ctx, c.opts.PageDelay); err != nil {
				return allRecords, err
			}
		}
	}

	if c.logger != nil {
		c.logger.Warn("CDX page limit reached, listing truncated", "domain", domain, "maxPages", c.opts.MaxPages, "records", len(allRecords))
	}
	return allRecords, nil
}

// parseCDXResponse parses the CDX JSON response
// Format: [[header], [record1], [record2], ..., [], [resumeKey]]
// Each record: [original, timestamp, statuscode, mimetype]
// Resume key is a single-element array at the end (if more pages exist)
// Note: There may be an empty array [] before the resume key
func parseCDXResponse(body []byte, domain string) (*models.CDXResponse, error) {
	response := &models.CDXResponse{
		Records: make([]models.CDXRecord, 0),
	}

	// The archive answers an empty listing with an empty body
	if len(strings.TrimSpace(string(body))) == 0 {
		return response, nil
	}

	var rawRows [][]string
	if err := json.Unmarshal(body, &rawRows); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(rawRows) == 0 {
		return response, nil
	}

	// Check last element for resume key FIRST (single-element array)
	lastRow := rawRows[len(rawRows)-1]
	if len(rawRows) > 1 && len(lastRow) == 1 {
		response.ResumeKey = lastRow[0]
		response.HasMore = true
		rawRows = rawRows[:len(rawRows)-1]
	}

	fetchedAt := time.Now().UTC()

	// Skip header row (index 0) - it contains field names
	for i := 1; i < len(rawRows); i++ {
		row := rawRows[i]

		// Skip empty rows (API sometimes includes [] before resume key)
		// and malformed rows
		if len(row) < 4 {
			continue
		}

		record := models.CDXRecord{
			URL:       row[0],
			Domain:    domain,
			Timestamp: row[1],
			FetchedAt: fetchedAt,
		}

		// Status code and MIME type may be empty or "-"
		if row[2] != "" && row[2] != "-" {
			if code, err := strconv.Atoi(row[2]); err == nil {
				record.StatusCode = &code
			}
		}
		if row[3] != "" && row[3] != "-" {
			mimeType := row[3]
			record.MimeType = &mimeType
		}

		response.Records = append(response.Records, record)
	}

	return response, nil
}

// Sleep blocks for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
