package repository

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// TickerFile loads the watch-list from a text file, one symbol per line.
// Symbols given explicitly (config or env) take precedence over the file.
type TickerFile struct {
	path     string
	override []string
}

func NewTickerFile(path string, override []string) *TickerFile {
	return &TickerFile{path: path, override: override}
}

func (t *TickerFile) Load(_ context.Context) ([]string, error) {
	if len(t.override) > 0 {
		return NormalizeTickers(t.override), nil
	}
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("ticker file: %w", err)
	}
	defer f.Close()

	tickers, err := ParseTickers(f)
	if err != nil {
		return nil, fmt.Errorf("ticker file %s: %w", t.path, err)
	}
	return tickers, nil
}

// ParseTickers reads one symbol per line, skipping blanks and # comments.
// Inline comments after a symbol are ignored too.
func ParseTickers(r io.Reader) ([]string, error) {
	var raw []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		raw = append(raw, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NormalizeTickers(raw), nil
}

// NormalizeTickers trims and upper-cases symbols, drops empties and keeps the
// first occurrence of duplicates.
func NormalizeTickers(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
