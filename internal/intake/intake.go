// Package intake turns command-line input into a list of target hostnames.
package intake

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/thesavant42/sqlihunter/internal/api"
)

// ErrNoDomains is returned when the input yields no usable domain
var ErrNoDomains = errors.New("no valid domains supplied")

var validate = validator.New()

// Warning describes a skipped input line
type Warning struct {
	Line   int // 1-based, 0 for the -d argument
	Input  string
	Reason string
}

func (w Warning) String() string {
	if w.Line == 0 {
		return fmt.Sprintf("%q: %s", w.Input, w.Reason)
	}
	return fmt.Sprintf("line %d %q: %s", w.Line, w.Input, w.Reason)
}

// Normalize converts various input formats into a bare, lowercased host name.
// Examples:
//   - "https://Example.com/path" -> "example.com"
//   - "example.com:8443/"        -> "example.com"
//   - "*.sub.example.com."       -> "sub.example.com"
func Normalize(input string) string {
	d := strings.TrimSpace(input)
	if d == "" {
		return ""
	}

	if strings.Contains(d, "://") {
		if u, err := url.Parse(d); err == nil && u.Host != "" {
			d = u.Host
		} else {
			d = d[strings.Index(d, "://")+3:]
		}
	}

	// Drop path, query and fragment
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	// Drop userinfo and port
	if i := strings.LastIndexByte(d, '@'); i >= 0 {
		d = d[i+1:]
	}
	if host, _, err := net.SplitHostPort(d); err == nil {
		d = host
	}

	d = strings.TrimPrefix(d, "*.")
	d = strings.TrimSuffix(d, ".")
	return strings.ToLower(d)
}

// Validate checks that domain is a fully qualified host name under a known
// public suffix
func Validate(domain string) error {
	if domain == "" {
		return errors.New("empty domain")
	}
	if err := validate.Var(domain, "fqdn"); err != nil {
		return fmt.Errorf("not a valid hostname")
	}
	if _, err := api.ExtractRootDomain(domain); err != nil {
		return fmt.Errorf("no registrable domain: %w", err)
	}
	return nil
}

// Parse reads a newline-delimited domain list. Blank lines and '#' comments
// are ignored silently, invalid and duplicate entries produce warnings.
func Parse(r io.Reader) ([]string, []Warning, error) {
	var domains []string
	var warnings []Warning
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		d := Normalize(line)
		if err := Validate(d); err != nil {
			warnings = append(warnings, Warning{Line: lineNo, Input: line, Reason: err.Error()})
			continue
		}
		if seen[d] {
			warnings = append(warnings, Warning{Line: lineNo, Input: line, Reason: "duplicate"})
			continue
		}
		seen[d] = true
		domains = append(domains, d)
	}
	if err := scanner.Err(); err != nil {
		return domains, warnings, fmt.Errorf("failed to read domain list: %w", err)
	}

	return domains, warnings, nil
}

// Load resolves the -d / -l inputs. A single domain takes precedence over a
// list file. ErrNoDomains is returned when nothing valid remains.
func Load(domain, listPath string) ([]string, []Warning, error) {
	if strings.TrimSpace(domain) != "" {
		d := Normalize(domain)
		if err := Validate(d); err != nil {
			return nil, []Warning{{Input: domain, Reason: err.Error()}}, ErrNoDomains
		}
		return []string{d}, nil, nil
	}

	if listPath == "" {
		return nil, nil, ErrNoDomains
	}

	f, err := os.Open(listPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open domain list: %w", err)
	}
	defer f.Close()

	domains, warnings, err := Parse(f)
	if err != nil {
		return nil, warnings, err
	}
	if len(domains) == 0 {
		return nil, warnings, ErrNoDomains
	}
	return domains, warnings, nil
}
