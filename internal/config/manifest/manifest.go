package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/open-edge-platform/openwrt-sbom/internal/config/validate"
)

// DiffSuffix is appended to the manifest path for the diff list.
const DiffSuffix = "_diff"

// Name returns the manifest path <outputDir>/<name><suffix>.
func Name(outputDir, name, suffix string) string {
	return filepath.Join(outputDir, name+suffix)
}

// DiffName returns the path of the diff list belonging to manifestPath.
func DiffName(manifestPath string) string {
	return manifestPath + DiffSuffix
}

// MarshalSorted encodes v with object keys sorted, a four-space indent, no
// HTML escaping, non-ASCII characters escaped as \uXXXX and a trailing newline.
func MarshalSorted(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling: %w", err)
	}

	// maps are encoded with sorted keys, so a generic round trip sorts
	// every object regardless of struct field order
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("re-reading JSON: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("marshalling: %w", err)
	}
	return escapeNonASCII(buf.Bytes()), nil
}

// MarshalList encodes names on one line as `["a", "b"]` followed by a newline.
func MarshalList(names []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, name := range names {
		if i > 0 {
			buf.WriteString(", ")
		}
		var item bytes.Buffer
		enc := json.NewEncoder(&item)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(name); err != nil {
			return nil, fmt.Errorf("marshalling %q: %w", name, err)
		}
		buf.Write(bytes.TrimRight(item.Bytes(), "\n"))
	}
	buf.WriteString("]\n")
	return escapeNonASCII(buf.Bytes()), nil
}

// WriteCycloneDXToFile validates doc against the CycloneDX schema and writes
// it to path, creating parent directories.
func WriteCycloneDXToFile(doc interface{}, path string) error {
	data, err := MarshalSorted(doc)
	if err != nil {
		return fmt.Errorf("encoding SBOM: %w", err)
	}
	if err := validate.ValidateCycloneDXJSON(data); err != nil {
		return fmt.Errorf("generated SBOM is invalid: %w", err)
	}
	return writeFile(path, data)
}

// WriteDiffToFile writes the list of packages without CPE id to path.
func WriteDiffToFile(names []string, path string) error {
	data, err := MarshalList(names)
	if err != nil {
		return fmt.Errorf("encoding diff list: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// escapeNonASCII rewrites every rune above U+007F as a \uXXXX escape, using a
// surrogate pair outside the BMP. Such runes only occur inside JSON strings.
func escapeNonASCII(data []byte) []byte {
	s := string(data)
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return data
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/2)
	for _, r := range s {
		switch {
		case r < 0x80:
			b.WriteRune(r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return []byte(b.String())
}
