package validate

import (
	"strings"
	"testing"
)

// FuzzValidateAgainstSchema tests schema validation with various inputs
func FuzzValidateAgainstSchema(f *testing.F) {
	basicSchema := []byte(`{
		"type": "object",
		"additionalProperties": {"type": "string"}
	}`)

	f.Add("test-schema", basicSchema, []byte(`{"busybox": "cpe:/a:busybox:busybox"}`), "")
	f.Add("test-schema", basicSchema, []byte(`{}`), "")
	f.Add("test-schema", basicSchema, []byte(`{"busybox": null}`), "")
	f.Add("test-schema", basicSchema, []byte(`{"busybox": 1}`), "")
	f.Add("test-schema", basicSchema, []byte(`invalid json`), "")
	f.Add("test-schema", basicSchema, []byte(`null`), "")
	f.Add("test-schema", basicSchema, []byte(`[]`), "")
	f.Add("test-schema", basicSchema, []byte(`"string"`), "")

	f.Fuzz(func(t *testing.T, name string, schema []byte, data []byte, ref string) {
		// Skip invalid schema names that would cause panics in the library
		if name == "" || strings.ContainsAny(name, "#%?") || len(name) < 3 {
			t.Skip("Skipping invalid schema name")
		}
		if len(schema) < 10 {
			t.Skip("Skipping too small schema")
		}

		_ = ValidateAgainstSchema(name, schema, data, ref)
	})
}

// FuzzValidateCPEMapJSON tests external CPE map validation
func FuzzValidateCPEMapJSON(f *testing.F) {
	f.Add([]byte(`{"openssl": "cpe:/a:openssl:openssl"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"openssl": ["cpe:/a:openssl:openssl"]}`))
	f.Add([]byte(`invalid json content`))
	f.Add([]byte(`null`))
	f.Add([]byte(`[]`))

	f.Fuzz(func(t *testing.T, data []byte) {
		_ = ValidateCPEMapJSON(data)
	})
}

// FuzzValidateCycloneDXJSON tests SBOM validation
func FuzzValidateCycloneDXJSON(f *testing.F) {
	f.Add([]byte(`{"bomFormat": "CycloneDX", "specVersion": "1.4", "serialNumber": "urn:uuid:00000000-0000-0000-0000-000000000000", "version": 1, "components": []}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"bomFormat": null}`))
	f.Add([]byte(`invalid json`))
	f.Add([]byte(`null`))

	f.Fuzz(func(t *testing.T, data []byte) {
		_ = ValidateCycloneDXJSON(data)
	})
}
