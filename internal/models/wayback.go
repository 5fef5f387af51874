package models

import "time"

// CDXRecord represents a Wayback Machine CDX record
type CDXRecord struct {
	ID         int64
	URL        string
	Domain     string
	Timestamp  string  // 14-digit format: YYYYMMDDhhmmss
	StatusCode *int    // nullable - some records don't have status
	MimeType   *string // nullable - some records don't have mime type
	FetchedAt  time.Time
}

// CDXResponse represents the response from a CDX API fetch
type CDXResponse struct {
	Records   []CDXRecord
	ResumeKey string // For pagination
	HasMore   bool
}

// URLs returns the original URL of every record, in archive order
func (r CDXResponse) URLs() []string {
	return RecordURLs(r.Records)
}

// RecordURLs extracts the original URLs from a slice of records
func RecordURLs(records []CDXRecord) []string {
	urls := make([]string, 0, len(records))
	for _, rec := range records {
		urls = append(urls, rec.URL)
	}
	return urls
}
