package ospackage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/open-edge-platform/openwrt-sbom/internal/config/validate"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

// LoadStore reads a package store file. The format is chosen by extension:
// .json or .yaml/.yml, optionally followed by .gz, .zst or .xz.
func LoadStore(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening package store: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, path)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	defer closeFn()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var store *Store
	if isYAML(trimCompressionExt(path)) {
		store, err = ParseStoreYAML(data)
	} else {
		store, err = ParseStoreJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if store.Len() == 0 {
		return nil, fmt.Errorf("no packages found in %s", path)
	}
	return store, nil
}

// ParseStoreJSON parses a JSON object of name to record, keeping key order.
func ParseStoreJSON(data []byte) (*Store, error) {
	if err := validate.ValidatePackageStoreJSON(data); err != nil {
		return nil, err
	}

	store := NewStore()
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		store.Add(key.String(), &PackageRecord{
			Name:     value.Get("name").String(),
			Version:  value.Get("version").String(),
			License:  value.Get("license").String(),
			Supplier: value.Get("package_supplier").String(),
			CPEID:    value.Get("cpe_id").String(),
		})
		return true
	})
	return store, nil
}

// ParseStoreYAML parses a YAML mapping of name to record, keeping key order.
func ParseStoreYAML(data []byte) (*Store, error) {
	asJSON, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting YAML: %w", err)
	}
	if err := validate.ValidatePackageStoreJSON(asJSON); err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}

	store := NewStore()
	if len(doc.Content) == 0 {
		return store, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at the top level")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		rec := &PackageRecord{}
		if err := root.Content[i+1].Decode(rec); err != nil {
			return nil, fmt.Errorf("decoding package %s: %w", root.Content[i].Value, err)
		}
		store.Add(root.Content[i].Value, rec)
	}
	return store, nil
}

// MarshalStoreJSON encodes the store as an indented JSON object in store
// order. An empty CPE id is written as null.
func MarshalStoreJSON(store *Store) ([]byte, error) {
	var raw bytes.Buffer
	raw.WriteByte('{')
	var err error
	store.Each(func(name string, rec *PackageRecord) bool {
		var key, value []byte
		if key, err = json.Marshal(name); err != nil {
			return false
		}
		if value, err = marshalRecord(rec); err != nil {
			err = fmt.Errorf("package %q: %w", name, err)
			return false
		}
		if raw.Len() > 1 {
			raw.WriteByte(',')
		}
		raw.Write(key)
		raw.WriteByte(':')
		raw.Write(value)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("encoding package store: %w", err)
	}
	raw.WriteByte('}')

	var buf bytes.Buffer
	if err := indentJSON(&buf, raw.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// marshalRecord encodes one record with its fields in package store order.
func marshalRecord(rec *PackageRecord) ([]byte, error) {
	var cpe interface{}
	if rec.CPEID != "" {
		cpe = rec.CPEID
	}
	fields := []struct {
		path  string
		value interface{}
	}{
		{"name", rec.Name},
		{"version", rec.Version},
		{"license", rec.License},
		{"package_supplier", rec.Supplier},
		{"cpe_id", cpe},
	}

	doc := []byte("{}")
	var err error
	for _, f := range fields {
		if doc, err = sjson.SetBytes(doc, f.path, f.value); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// WriteStore writes the store as JSON to path, creating parent directories.
func WriteStore(store *Store, path string) error {
	data, err := MarshalStoreJSON(store)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func indentJSON(buf *bytes.Buffer, data []byte) error {
	if err := json.Indent(buf, data, "", "    "); err != nil {
		return fmt.Errorf("indenting package store: %w", err)
	}
	buf.WriteByte('\n')
	return nil
}

func decompress(r io.Reader, path string) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { gz.Close() }, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case ".xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, func() {}, nil
	default:
		return r, func() {}, nil
	}
}

func trimCompressionExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".zst", ".xz":
		return strings.TrimSuffix(path, filepath.Ext(path))
	}
	return path
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
