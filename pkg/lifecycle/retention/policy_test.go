package retention

import (
	"os"
	"path/filepath"
	"testing"
)

func validPolicy() Policy {
	return Policy{
		Name:                "test-policy",
		RetentionPeriodDays: 90,
		ApplyToActive:       true,
		DataTypes:           []DataType{DataExportRequests},
		Enabled:             true,
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Policy)
		wantErr bool
	}{
		{"valid", func(p *Policy) {}, false},
		{"empty name", func(p *Policy) { p.Name = "" }, true},
		{"zero retention", func(p *Policy) { p.RetentionPeriodDays = 0 }, true},
		{"negative retention", func(p *Policy) { p.RetentionPeriodDays = -5 }, true},
		{"retention above max", func(p *Policy) { p.RetentionPeriodDays = 3651 }, true},
		{"retention at min", func(p *Policy) { p.RetentionPeriodDays = 1 }, false},
		{"retention at max", func(p *Policy) { p.RetentionPeriodDays = 3650 }, false},
		{"no data types", func(p *Policy) { p.DataTypes = nil }, true},
		{"unknown data type", func(p *Policy) { p.DataTypes = []DataType{"userAccounts"} }, true},
		{"no scope", func(p *Policy) { p.ApplyToActive = false; p.ApplyToArchived = false }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultPolicies_AllValid(t *testing.T) {
	defaults := DefaultPolicies()
	if len(defaults) != 4 {
		t.Fatalf("expected 4 default policies, got %d", len(defaults))
	}
	for _, p := range defaults {
		if err := p.Validate(); err != nil {
			t.Errorf("default policy %q invalid: %v", p.Name, err)
		}
		if !p.Enabled {
			t.Errorf("default policy %q should be enabled", p.Name)
		}
	}
}

func TestMergePolicies(t *testing.T) {
	base := DefaultPolicies()
	overrides := []Policy{
		{
			Name:                "export-request-cleanup",
			RetentionPeriodDays: 30,
			ApplyToActive:       true,
			ApplyToArchived:     true,
			DataTypes:           []DataType{DataExportRequests},
			Enabled:             false,
		},
		{
			Name:                "custom-story-cleanup",
			RetentionPeriodDays: 365,
			ApplyToArchived:     true,
			DataTypes:           []DataType{DataStories},
			Enabled:             true,
		},
	}

	merged := MergePolicies(base, overrides)
	if len(merged) != len(base)+1 {
		t.Fatalf("expected %d merged policies, got %d", len(base)+1, len(merged))
	}

	byName := make(map[string]Policy)
	for _, p := range merged {
		byName[p.Name] = p
	}
	if got := byName["export-request-cleanup"]; got.RetentionPeriodDays != 30 || got.Enabled {
		t.Errorf("override not applied: %+v", got)
	}
	if _, ok := byName["custom-story-cleanup"]; !ok {
		t.Error("custom policy not appended")
	}
	// The base slice must not be mutated.
	for _, p := range base {
		if p.Name == "export-request-cleanup" && p.RetentionPeriodDays != 90 {
			t.Error("MergePolicies mutated base slice")
		}
	}
}

func TestLoadPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.yaml")

	content := `policies:
  - name: export-request-cleanup
    retention_period_days: 45
    apply_to_active: true
    apply_to_archived: true
    data_types: [exportRequests]
    enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	policies, err := LoadPolicyFile(path)
	if err != nil {
		t.Fatalf("LoadPolicyFile() error = %v", err)
	}
	if len(policies) != 1 || policies[0].RetentionPeriodDays != 45 {
		t.Errorf("unexpected policies: %+v", policies)
	}
}

func TestLoadPolicyFile_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadPolicyFile(filepath.Join(dir, "absent.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		os.WriteFile(path, []byte("policies: [not: {valid"), 0o600)
		if _, err := LoadPolicyFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid policy rejects whole file", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		content := `policies:
  - name: ok-policy
    retention_period_days: 30
    apply_to_active: true
    data_types: [tempFiles]
    enabled: true
  - name: broken-policy
    retention_period_days: 0
    apply_to_active: true
    data_types: [tempFiles]
`
		os.WriteFile(path, []byte(content), 0o600)
		if _, err := LoadPolicyFile(path); err == nil {
			t.Error("expected validation error")
		}
	})
}
