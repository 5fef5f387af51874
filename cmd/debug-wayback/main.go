// Debug tool to test Wayback CDX fetching and filtering directly
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/sqlihunter/internal/api"
	"github.com/thesavant42/sqlihunter/internal/filter"
)

func main() {
	limit := flag.Int("limit", 0, "Records per page (0 = unpaginated single query)")
	proxyAddr := flag.String("proxy-addr", "", "SOCKS5 proxy address (host:port)")
	timeout := flag.Duration("timeout", 3*time.Minute, "Request timeout")
	flag.Parse()

	domain := "example.com"
	if flag.NArg() > 0 {
		domain = flag.Arg(0)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
	})

	fmt.Printf("Testing CDX fetch for domain: %s\n", domain)
	fmt.Printf("Query: %s\n", api.BuildCDXQuery(domain, "", *limit))

	client, err := api.NewWaybackClientWithOptions(logger, api.ClientOptions{
		Timeout:   *timeout,
		ProxyAddr: *proxyAddr,
	})
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	// Single page fetch
	fmt.Println("\n--- Fetching single page ---")
	start := time.Now()
	resp, err := client.FetchCDX(context.Background(), domain, "", *limit)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Elapsed: %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Records: %d\n", len(resp.Records))
	fmt.Printf("HasMore: %v\n", resp.HasMore)
	fmt.Printf("ResumeKey: %s\n", resp.ResumeKey)

	cleaned := filter.New(filter.DefaultOptions()).Clean(resp.URLs())
	fmt.Printf("Candidates (query string, deduplicated): %d\n", len(cleaned))

	// Show first 3 candidates
	fmt.Println("\nFirst candidates:")
	for i, u := range cleaned {
		if i >= 3 {
			fmt.Printf("  ... and %d more\n", len(cleaned)-3)
			break
		}
		fmt.Printf("  %d. %s\n", i+1, u)
	}
}
