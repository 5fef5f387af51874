package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/thesavant42/sqlihunter/internal/config"
	"github.com/thesavant42/sqlihunter/internal/db"
	"github.com/thesavant42/sqlihunter/internal/models"
	"github.com/thesavant42/sqlihunter/internal/ui"
)

func main() {
	dbPath := flag.String("db", config.DefaultDBPath, "SQLite run ledger path")
	domain := flag.String("domain", "", "Only export runs and domain totals for this domain")
	limit := flag.Int("limit", 500, "Maximum number of runs to export")
	withURLs := flag.Bool("urls", false, "Include the candidate URLs stored for each run")
	outFile := flag.String("o", "", "Output file (default runs-export-<timestamp>.md)")
	deleteRun := flag.Int64("delete-run", 0, "Delete the run with this ID and its records, then exit")
	flag.Parse()

	// Open database
	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if *deleteRun > 0 {
		if err := database.DeleteScanRun(*deleteRun); err != nil {
			log.Fatalf("Failed to delete run: %v", err)
		}
		fmt.Printf("✓ Deleted run #%d\n", *deleteRun)
		return
	}

	stats, err := database.GetDomainRunStats(*domain)
	if err != nil {
		log.Fatalf("Failed to get domain stats: %v", err)
	}

	runs, err := database.GetScanRuns(models.RunFilter{Domain: *domain, Limit: *limit})
	if err != nil {
		log.Fatalf("Failed to get runs: %v", err)
	}

	var sb strings.Builder
	sb.WriteString(ui.GenerateMarkdownReport(stats, runs))
	fmt.Fprintf(&sb, "\nGenerated: %s\n", time.Now().Format("2006-01-02 15:04:05"))

	if *withURLs {
		sb.WriteString("\n## Candidate URLs\n\n")
		for _, run := range runs {
			records, err := database.GetRunRecords(run.ID, true)
			if err != nil {
				log.Printf("Failed to get records for run %d: %v", run.ID, err)
				continue
			}
			if len(records) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "### #%d %s\n\n", run.ID, run.Domain)
			for _, r := range records {
				fmt.Fprintf(&sb, "- `%s`\n", r.URL)
			}
			sb.WriteString("\n")
		}
	}

	filename := *outFile
	if filename == "" {
		filename = fmt.Sprintf("runs-export-%s.md", time.Now().Format("20060102-150405"))
	}
	if err := os.WriteFile(filename, []byte(sb.String()), 0644); err != nil {
		log.Fatalf("Failed to write file: %v", err)
	}

	fmt.Printf("✓ Exported %d runs to %s\n", len(runs), filename)
}
