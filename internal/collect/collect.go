// Package collect resolves the target URLs of a batch from inline values and
// URL list files.
package collect

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/social-cli/internal/config"
)

// commentPrefix marks a line of a URL list file that is ignored.
const commentPrefix = "#"

// Collect merges inline URLs and the URLs listed in the file at path (if
// path is non-empty) into one sequence. Duplicates are removed by exact
// match; the first occurrence keeps its position. An empty result is a
// ConfigurationError.
func Collect(inline []string, path string) ([]string, error) {
	var urls []string
	for _, u := range inline {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	if path != "" {
		fromFile, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}

	urls = Dedupe(urls)
	if len(urls) == 0 {
		return nil, config.Errorf("provide --urls or --file with at least one URL")
	}
	return urls, nil
}

// Dedupe drops repeated entries while preserving first-seen order.
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// ReadFile reads a URL list. Spreadsheets (.xlsx) and CSV files contribute
// the first URL-looking cell of each row; any other file is read as one URL
// per line. Blank lines and lines starting with "#" are skipped.
func ReadFile(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, config.Errorf("URL file not found: %s", path)
		}
		return nil, config.Wrap(err, "URL file unreadable: "+path)
	}

	var (
		urls []string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		urls, err = readXLSX(path)
	case ".csv":
		urls, err = readCSV(path)
	default:
		urls, err = readLines(path)
	}
	if err != nil {
		return nil, config.Wrap(err, "read URL file "+path)
	}
	return urls, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "collect: open")
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		urls = append(urls, line)
	}
	return urls, eris.Wrap(sc.Err(), "collect: scan")
}

func readCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "collect: open")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var urls []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "collect: read csv")
		}
		if u, ok := firstURL(record); ok {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func readXLSX(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "collect: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, nil
	}

	var urls []string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		if u, ok := firstURL(cells); ok {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// firstURL returns the first http(s) cell of a row. Header rows and comment
// rows have none and are skipped.
func firstURL(cells []string) (string, bool) {
	if len(cells) > 0 && strings.HasPrefix(strings.TrimSpace(cells[0]), commentPrefix) {
		return "", false
	}
	for _, c := range cells {
		c = strings.TrimSpace(c)
		lc := strings.ToLower(c)
		if strings.HasPrefix(lc, "http://") || strings.HasPrefix(lc, "https://") {
			return c, true
		}
	}
	return "", false
}
