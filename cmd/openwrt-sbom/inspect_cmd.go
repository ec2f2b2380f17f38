package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/CycloneDX/cyclonedx-go"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/open-edge-platform/openwrt-sbom/internal/config/validate"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

// Output format command flags
var (
	inspectFormat string
	inspectPretty bool
)

// inspectSummary is printed by inspect --format json.
type inspectSummary struct {
	File         string         `json:"file"`
	SpecVersion  string         `json:"specVersion"`
	SerialNumber string         `json:"serialNumber"`
	Components   int            `json:"components"`
	Groups       map[string]int `json:"groups"`
	WithoutCPE   []string       `json:"withoutCpe"`
	Invalid      []string       `json:"invalidComponents"`
}

// createInspectCommand creates the inspect subcommand
func createInspectCommand() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect [flags] MANIFEST",
		Short: "Show the components of a generated SBOM",
		Long: `Inspect decodes a CycloneDX SBOM written by generate and prints its
components as a table, or a summary object with --format json.`,
		Args: cobra.ExactArgs(1),
		RunE: executeInspect,
	}

	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text",
		"Output format: text or json")
	inspectCmd.Flags().BoolVar(&inspectPretty, "pretty", true,
		"Pretty-print JSON output (only for --format json)")
	return inspectCmd
}

// executeInspect handles the inspect command execution logic
func executeInspect(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	manifestFile := args[0]
	log.Debugf("Inspecting SBOM %s", manifestFile)

	data, err := os.ReadFile(manifestFile)
	if err != nil {
		return fmt.Errorf("reading SBOM: %w", err)
	}
	bom, err := decodeBOM(manifestFile, data)
	if err != nil {
		return err
	}
	invalid := invalidComponents(data)

	switch strings.ToLower(inspectFormat) {
	case "json":
		summary := summarizeBOM(manifestFile, bom)
		summary.Invalid = invalid
		return writeInspectJSON(cmd.OutOrStdout(), summary, inspectPretty)
	case "text":
		renderComponentTable(cmd.OutOrStdout(), bom)
		return nil
	default:
		return fmt.Errorf("invalid --format %q (expected text|json)", inspectFormat)
	}
}

func decodeBOM(path string, data []byte) (*cyclonedx.BOM, error) {
	var bom cyclonedx.BOM
	if err := cyclonedx.NewBOMDecoder(bytes.NewReader(data), cyclonedx.BOMFileFormatJSON).Decode(&bom); err != nil {
		return nil, fmt.Errorf("decoding SBOM %s: %w", path, err)
	}
	if bom.BOMFormat != cyclonedx.BOMFormat {
		return nil, fmt.Errorf("%s is not a CycloneDX document (bomFormat %q)", path, bom.BOMFormat)
	}
	return &bom, nil
}

// invalidComponents checks every component on its own and returns the names
// of those that do not match the component schema. Unnamed components are
// reported by position.
func invalidComponents(data []byte) []string {
	log := logger.Logger()

	invalid := []string{}
	for i, c := range gjson.GetBytes(data, "components").Array() {
		if err := validate.ValidateComponentJSON([]byte(c.Raw)); err != nil {
			name := c.Get("name").String()
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			log.Warnf("component %s: %v", name, err)
			invalid = append(invalid, name)
		}
	}
	return invalid
}

func components(bom *cyclonedx.BOM) []cyclonedx.Component {
	if bom.Components == nil {
		return nil
	}
	return *bom.Components
}

func licenseNames(c cyclonedx.Component) string {
	if c.Licenses == nil {
		return ""
	}
	var names []string
	for _, choice := range *c.Licenses {
		switch {
		case choice.License != nil && choice.License.Name != "":
			names = append(names, choice.License.Name)
		case choice.License != nil:
			names = append(names, choice.License.ID)
		case choice.Expression != "":
			names = append(names, choice.Expression)
		}
	}
	return strings.Join(names, ", ")
}

func renderComponentTable(w io.Writer, bom *cyclonedx.BOM) {
	outputTable := table.NewWriter()
	outputTable.SetOutputMirror(w)
	outputTable.SetStyle(table.StyleLight)
	outputTable.AppendHeader(table.Row{"Name", "Version", "Group", "CPE", "License"})
	for _, c := range components(bom) {
		outputTable.AppendRow(table.Row{c.Name, c.Version, c.Group, c.CPE, licenseNames(c)})
	}
	outputTable.AppendFooter(table.Row{"", "", "", "Components", len(components(bom))})
	outputTable.Render()
}

func summarizeBOM(file string, bom *cyclonedx.BOM) inspectSummary {
	summary := inspectSummary{
		File:         file,
		SpecVersion:  bom.SpecVersion.String(),
		SerialNumber: bom.SerialNumber,
		Groups:       map[string]int{},
		WithoutCPE:   []string{},
	}
	for _, c := range components(bom) {
		summary.Components++
		summary.Groups[c.Group]++
		if c.CPE == "" || strings.HasPrefix(c.CPE, "cpe:/a:unknown:unknown") {
			summary.WithoutCPE = append(summary.WithoutCPE, c.Name)
		}
	}
	return summary
}

func writeInspectJSON(out io.Writer, v any, pretty bool) error {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, _ = fmt.Fprintln(out, string(b))
	return nil
}
