// Package output manages the per-domain, per-run artifact directories.
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	RawFileName     = "raw_urls.txt"
	CleanedFileName = "cleaned_urls.txt"

	dirPerm  = 0755
	filePerm = 0644
)

// Writer creates output bundles under a root directory
type Writer struct {
	root string
}

// NewWriter creates a Writer rooted at root ("" means the working directory)
func NewWriter(root string) *Writer {
	if root == "" {
		root = "."
	}
	return &Writer{root: root}
}

// Root returns the directory bundles are created in
func (w *Writer) Root() string {
	return w.root
}

// Bundle is the directory holding one run's artifacts for one domain
type Bundle struct {
	Dir    string
	Domain string
}

// RawPath returns the path of the raw URL list
func (b *Bundle) RawPath() string {
	return filepath.Join(b.Dir, RawFileName)
}

// CleanedPath returns the path of the cleaned URL list
func (b *Bundle) CleanedPath() string {
	return filepath.Join(b.Dir, CleanedFileName)
}

// DirName returns the bundle directory name for a domain and run start time:
// output_<domain>_<unix-millis>
func DirName(domain string, startedAt time.Time) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(domain)
	return fmt.Sprintf("output_%s_%d", safe, startedAt.UnixMilli())
}

// Create makes a fresh bundle directory. If a directory with the same name
// already exists (two runs in the same millisecond) a numeric suffix is added.
func (w *Writer) Create(domain string, startedAt time.Time) (*Bundle, error) {
	if err := os.MkdirAll(w.root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output root: %w", err)
	}

	base := filepath.Join(w.root, DirName(domain, startedAt))
	dir := base
	for i := 1; ; i++ {
		err := os.Mkdir(dir, dirPerm)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		dir = fmt.Sprintf("%s_%d", base, i)
	}

	return &Bundle{Dir: dir, Domain: domain}, nil
}

// WriteRaw writes the raw URL list
func (b *Bundle) WriteRaw(urls []string) error {
	return WriteLines(b.RawPath(), urls)
}

// WriteCleaned writes the cleaned URL list. An empty list produces an empty file.
func (b *Bundle) WriteCleaned(urls []string) error {
	return WriteLines(b.CleanedPath(), urls)
}

// WriteLines writes one entry per line, truncating any existing file
func WriteLines(path string, lines []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}

	bw := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadLines reads a line-delimited file, skipping blank lines
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}
