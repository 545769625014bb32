package retention

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"heirloom-hq/chronicle/pkg/lifecycle"
)

// DataType identifies one category of data a policy sweeps.
type DataType string

const (
	DataProjects         DataType = "projects"
	DataStories          DataType = "stories"
	DataInteractions     DataType = "interactions"
	DataChapterSummaries DataType = "chapterSummaries"
	DataExportRequests   DataType = "exportRequests"
	DataTempFiles        DataType = "tempFiles"
	DataAnalyticsEvents  DataType = "analyticsEvents"
)

// Valid reports whether d is a known data type.
func (d DataType) Valid() bool {
	switch d {
	case DataProjects, DataStories, DataInteractions, DataChapterSummaries,
		DataExportRequests, DataTempFiles, DataAnalyticsEvents:
		return true
	}
	return false
}

// Policy retention period bounds, in days.
const (
	MinRetentionDays = 1
	MaxRetentionDays = 3650
)

// Policy describes one retention rule.
type Policy struct {
	Name                string     `yaml:"name" json:"name"`
	Description         string     `yaml:"description" json:"description"`
	RetentionPeriodDays int        `yaml:"retention_period_days" json:"retentionPeriodDays"`
	ApplyToArchived     bool       `yaml:"apply_to_archived" json:"applyToArchived"`
	ApplyToActive       bool       `yaml:"apply_to_active" json:"applyToActive"`
	DataTypes           []DataType `yaml:"data_types" json:"dataTypes"`
	Enabled             bool       `yaml:"enabled" json:"enabled"`
}

// Validate checks the policy's machine-checkable validity predicate.
func (p *Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name must not be empty")
	}
	if p.RetentionPeriodDays < MinRetentionDays || p.RetentionPeriodDays > MaxRetentionDays {
		return fmt.Errorf("policy %q: retention period must be between %d and %d days, got %d",
			p.Name, MinRetentionDays, MaxRetentionDays, p.RetentionPeriodDays)
	}
	if len(p.DataTypes) == 0 {
		return fmt.Errorf("policy %q: at least one data type is required", p.Name)
	}
	for _, d := range p.DataTypes {
		if !d.Valid() {
			return fmt.Errorf("policy %q: unknown data type %q", p.Name, d)
		}
	}
	if !p.ApplyToArchived && !p.ApplyToActive {
		return fmt.Errorf("policy %q: must apply to archived projects, active projects, or both", p.Name)
	}
	return nil
}

// Scope returns the project scope the policy applies to.
func (p *Policy) Scope() lifecycle.Scope {
	return lifecycle.Scope{Archived: p.ApplyToArchived, Active: p.ApplyToActive}
}

// DefaultPolicies returns the four built-in retention policies.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			Name:                "archived-project-cleanup",
			Description:         "Purge projects archived for more than 7 years",
			RetentionPeriodDays: 2555,
			ApplyToArchived:     true,
			DataTypes:           []DataType{DataProjects},
			Enabled:             true,
		},
		{
			Name:                "export-request-cleanup",
			Description:         "Remove export requests and artifacts after 90 days",
			RetentionPeriodDays: 90,
			ApplyToArchived:     true,
			ApplyToActive:       true,
			DataTypes:           []DataType{DataExportRequests},
			Enabled:             true,
		},
		{
			Name:                "temp-file-cleanup",
			Description:         "Remove unattached uploads after 30 days",
			RetentionPeriodDays: 30,
			ApplyToArchived:     true,
			ApplyToActive:       true,
			DataTypes:           []DataType{DataTempFiles},
			Enabled:             true,
		},
		{
			Name:                "analytics-event-cleanup",
			Description:         "Clear analytics events after 2 years",
			RetentionPeriodDays: 730,
			ApplyToArchived:     true,
			ApplyToActive:       true,
			DataTypes:           []DataType{DataAnalyticsEvents},
			Enabled:             true,
		},
	}
}

// policyFile is the YAML override file shape.
type policyFile struct {
	Policies []Policy `yaml:"policies"`
}

// LoadPolicyFile parses a YAML policy override file. Every entry must
// validate; an invalid file is rejected whole.
func LoadPolicyFile(path string) ([]Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %q: %w", path, err)
	}
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %q: %w", path, err)
	}
	for i := range f.Policies {
		if err := f.Policies[i].Validate(); err != nil {
			return nil, fmt.Errorf("policy file %q: %w", path, err)
		}
	}
	return f.Policies, nil
}

// MergePolicies overlays overrides onto base by policy name. Overrides
// matching a base policy replace it; unmatched overrides are appended.
func MergePolicies(base, overrides []Policy) []Policy {
	merged := make([]Policy, len(base))
	copy(merged, base)
	index := make(map[string]int, len(merged))
	for i, p := range merged {
		index[p.Name] = i
	}
	for _, o := range overrides {
		if i, ok := index[o.Name]; ok {
			merged[i] = o
		} else {
			index[o.Name] = len(merged)
			merged = append(merged, o)
		}
	}
	return merged
}
