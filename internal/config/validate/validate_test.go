package validate

import (
	"testing"
)

const validBOM = `{
    "bomFormat": "CycloneDX",
    "components": [
        {
            "cpe": "cpe:/a:busybox:busybox:1.36.1",
            "group": "",
            "licenses": [{"license": {"name": "GPL-2.0"}}],
            "name": "busybox",
            "supplier": {"name": "OpenWrt"},
            "type": "application",
            "version": "1.36.1"
        }
    ],
    "serialNumber": "urn:uuid:00000000-0000-0000-0000-000000000000",
    "specVersion": "1.4",
    "version": 1
}`

func TestValidateCPEMapJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"openssl": "cpe:/a:openssl:openssl", "zlib": "cpe:/a:zlib:zlib"}`, false},
		{"empty object", `{}`, false},
		{"non-string value", `{"openssl": 3}`, true},
		{"array", `["openssl"]`, true},
		{"not json", `openssl: cpe`, true},
		{"trailing data", `{} {}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCPEMapJSON([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCPEMapJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePackageStoreJSON(t *testing.T) {
	valid := `{"busybox": {"name": "busybox", "version": "1.36.1", "license": "GPL-2.0", "package_supplier": "OpenWrt", "cpe_id": null}}`
	if err := ValidatePackageStoreJSON([]byte(valid)); err != nil {
		t.Errorf("expected valid store, got %v", err)
	}
	if err := ValidatePackageStoreJSON([]byte(`{"busybox": "1.36.1"}`)); err == nil {
		t.Error("expected error for non-object record")
	}
	if err := ValidatePackageStoreJSON([]byte(`{"busybox": {"name": 7}}`)); err == nil {
		t.Error("expected error for numeric name")
	}
}

func TestValidateCycloneDXJSON(t *testing.T) {
	if err := ValidateCycloneDXJSON([]byte(validBOM)); err != nil {
		t.Fatalf("expected valid BOM, got %v", err)
	}

	invalid := map[string]string{
		"wrong spec version": `{"bomFormat": "CycloneDX", "specVersion": "1.5", "serialNumber": "urn:uuid:00000000-0000-0000-0000-000000000000", "version": 1, "components": []}`,
		"missing components": `{"bomFormat": "CycloneDX", "specVersion": "1.4", "serialNumber": "urn:uuid:00000000-0000-0000-0000-000000000000", "version": 1}`,
		"bad serial":         `{"bomFormat": "CycloneDX", "specVersion": "1.4", "serialNumber": "0000", "version": 1, "components": []}`,
		"bad component purl": `{"bomFormat": "CycloneDX", "specVersion": "1.4", "serialNumber": "urn:uuid:00000000-0000-0000-0000-000000000000", "version": 1, "components": [{"type": "application", "name": "x", "version": "", "group": "", "supplier": {"name": ""}, "licenses": [], "cpe": "x:1", "purl": "x"}]}`,
	}
	for name, data := range invalid {
		t.Run(name, func(t *testing.T) {
			if err := ValidateCycloneDXJSON([]byte(data)); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestValidateComponentJSON(t *testing.T) {
	comp := `{"type": "application", "name": "zlib", "version": "1.3", "group": "Non-CPE", "supplier": {"name": "OpenWrt"}, "licenses": [{"license": {"name": "Zlib"}}], "cpe": "cpe:/a:unknown:unknown:1.3"}`
	if err := ValidateComponentJSON([]byte(comp)); err != nil {
		t.Errorf("expected valid component, got %v", err)
	}
	if err := ValidateComponentJSON([]byte(`{"type": "library", "name": "zlib"}`)); err == nil {
		t.Error("expected error for incomplete component")
	}
}

func TestValidateDiffJSON(t *testing.T) {
	if err := ValidateDiffJSON([]byte(`["luci-base", "uhttpd"]`)); err != nil {
		t.Errorf("expected valid diff, got %v", err)
	}
	if err := ValidateDiffJSON([]byte(`[]`)); err != nil {
		t.Errorf("expected empty diff to be valid, got %v", err)
	}
	if err := ValidateDiffJSON([]byte(`{"luci-base": true}`)); err == nil {
		t.Error("expected error for object diff")
	}
}
