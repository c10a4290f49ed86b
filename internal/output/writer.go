// Package output persists fetched documents under the run's output directory
// and appends each one to the sources.jsonl manifest.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/social-cli/internal/model"
	"github.com/sells-group/social-cli/internal/slug"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Writer stores results for one run.
type Writer struct {
	rc model.RunContext
}

// NewWriter creates a Writer rooted at rc.BaseDir(). Nothing is created on
// disk until the first Write.
func NewWriter(rc model.RunContext) *Writer {
	return &Writer{rc: rc}
}

// Filename is <timestamp>_<NN>_<url-slug>.json, with position 1-based and
// zero-padded to two digits.
func Filename(timestamp string, position int, url string) string {
	return fmt.Sprintf("%s_%02d_%s.json", timestamp, position, slug.Make(url))
}

// Write saves result, any JSON value, as indented ASCII-only JSON in the raw
// directory and then appends a manifest record pointing at it. It returns the
// saved path. If the manifest cannot be appended the artifact is removed, so
// every file under raw/ has a manifest line.
func (w *Writer) Write(position int, url string, result any) (string, error) {
	data, err := MarshalASCII(result, "  ")
	if err != nil {
		return "", eris.Wrap(err, "output: encode result")
	}

	if err := os.MkdirAll(w.rc.RawDir(), dirPerm); err != nil {
		return "", eris.Wrap(err, "output: create raw dir")
	}

	path := filepath.Join(w.rc.RawDir(), Filename(w.rc.Timestamp, position, url))
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return "", eris.Wrapf(err, "output: write %s", path)
	}

	rec := model.ManifestRecord{URL: url, Saved: path, Timestamp: w.rc.Timestamp}
	if err := AppendManifest(w.rc.ManifestPath(), rec); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			return "", eris.Wrapf(err, "output: %s left without manifest line (remove: %v)", path, rmErr)
		}
		return "", err
	}
	return path, nil
}

// AppendManifest writes rec as a single JSON line at the end of the manifest,
// creating the file if needed. The file is opened and closed per record.
func AppendManifest(path string, rec model.ManifestRecord) error {
	line, err := MarshalASCII(rec, "")
	if err != nil {
		return eris.Wrap(err, "output: encode manifest record")
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return eris.Wrap(err, "output: create manifest dir")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return eris.Wrap(err, "output: open manifest")
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return eris.Wrap(err, "output: append manifest")
	}
	return eris.Wrap(f.Close(), "output: close manifest")
}

// MarshalASCII encodes v as JSON followed by a newline. HTML characters are
// left as-is and every non-ASCII rune is written as a \uXXXX escape, so the
// output is pure ASCII. A non-empty indent pretty-prints the document.
func MarshalASCII(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return escapeNonASCII(buf.Bytes()), nil
}

// escapeNonASCII rewrites multi-byte runes of already valid JSON. Such runes
// can only occur inside string literals, where \u escapes are legal.
func escapeNonASCII(data []byte) []byte {
	if !hasNonASCII(data) {
		return data
	}

	out := make([]byte, 0, len(data)+len(data)/4)
	for len(data) > 0 {
		c := data[0]
		if c < utf8.RuneSelf {
			out = append(out, c)
			data = data[1:]
			continue
		}
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			out = fmt.Appendf(out, `\u%04x\u%04x`, hi, lo)
			continue
		}
		out = fmt.Appendf(out, `\u%04x`, r)
	}
	return out
}

func hasNonASCII(data []byte) bool {
	for _, c := range data {
		if c >= utf8.RuneSelf {
			return true
		}
	}
	return false
}
