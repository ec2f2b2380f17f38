package validate

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.json
var schemaFS embed.FS

const (
	CPEMapSchema       = "cpe-map.schema.json"
	PackageStoreSchema = "package-store.schema.json"
	CycloneDXSchema    = "cyclonedx-1.4-subset.schema.json"
	DiffSchema         = "diff.schema.json"
	schemaBaseURL      = "file:///openwrt-sbom/schema/"
)

// ValidateAgainstSchema compiles schema under name and validates data against
// it. ref selects a sub-schema, e.g. "#/definitions/component"; empty means the
// root.
func ValidateAgainstSchema(name string, schema []byte, data []byte, ref string) error {
	url := schemaBaseURL + name

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(url, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("loading schema %s: %w", name, err)
	}

	sch, err := compiler.Compile(url + ref)
	if err != nil {
		return fmt.Errorf("compiling schema %s: %w", name, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid JSON: trailing data after top-level value")
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("schema validation against %s failed: %w", name, err)
	}
	return nil
}

func validateEmbedded(name string, data []byte, ref string) error {
	schema, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return fmt.Errorf("reading embedded schema %s: %w", name, err)
	}
	return ValidateAgainstSchema(name, schema, data, ref)
}

// ValidateCPEMapJSON checks an external CPE map.
func ValidateCPEMapJSON(data []byte) error {
	return validateEmbedded(CPEMapSchema, data, "")
}

// ValidatePackageStoreJSON checks a package store document.
func ValidatePackageStoreJSON(data []byte) error {
	return validateEmbedded(PackageStoreSchema, data, "")
}

// ValidateCycloneDXJSON checks a generated SBOM against the subset of
// CycloneDX 1.4 this tool writes.
func ValidateCycloneDXJSON(data []byte) error {
	return validateEmbedded(CycloneDXSchema, data, "")
}

// ValidateComponentJSON checks a single SBOM component.
func ValidateComponentJSON(data []byte) error {
	return validateEmbedded(CycloneDXSchema, data, "#/definitions/component")
}

// ValidateDiffJSON checks a diff list.
func ValidateDiffJSON(data []byte) error {
	return validateEmbedded(DiffSchema, data, "")
}
