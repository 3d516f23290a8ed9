package acquisition

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/GriffinCanCode/casdk/internal/domain/telemetry"
	"github.com/goccy/go-yaml"
)

// Source tells the loop where a table's values come from.
type Source string

const (
	// SourceInline tables carry their values in the descriptor.
	SourceInline Source = "inline"
	// SourceExternal tables are fetched as snapshot text every cycle.
	SourceExternal Source = "external"
)

// InlineValue is a value declared directly in a table descriptor.
type InlineValue struct {
	Type  string `yaml:"type" json:"type"`
	Value any    `yaml:"value" json:"value"`
}

// TableDescriptor declares one data table.
type TableDescriptor struct {
	Name    string                 `yaml:"table" json:"table"`
	Prefix  string                 `yaml:"prefix" json:"prefix"`
	Enabled bool                   `yaml:"enabled" json:"enabled"`
	Source  Source                 `yaml:"source" json:"source"`
	Filter  string                 `yaml:"filter,omitempty" json:"filter,omitempty"`
	Data    map[string]InlineValue `yaml:"data,omitempty" json:"data,omitempty"`
}

// DefaultTables returns the stock head unit tables. Only sys, gps and vdt
// are enabled.
func DefaultTables() []TableDescriptor {
	external := func(name, prefix string, enabled bool) TableDescriptor {
		return TableDescriptor{Name: name, Prefix: prefix, Enabled: enabled, Source: SourceExternal}
	}

	gps := external("gps", "GPS", true)
	gps.Filter = telemetry.FilterGPS

	return []TableDescriptor{
		{
			Name:    "sys",
			Prefix:  "SYS",
			Enabled: true,
			Source:  SourceInline,
			Data: map[string]InlineValue{
				"region": {Type: "string", Value: "na"},
			},
		},
		gps,
		external("idm", "IDM", false),
		external("idmhistory", "IDMH", false),
		external("vdm", "VDM", false),
		external("vdt", "VDT", true),
		external("vdmhistory", "VDMH", false),
		external("vdtcurrent", "VDTC", false),
		external("vdthistory", "VDTH", false),
		external("vdtpid", "PID", false),
		external("vdtsettings", "VDTS", false),
	}
}

type tableFile struct {
	Tables []TableDescriptor `yaml:"tables"`
}

// ParseTables decodes a YAML table list:
//
//	tables:
//	  - table: vdt
//	    prefix: VDT
//	    enabled: true
//
// A table without an explicit source is inline when it declares data and
// external otherwise.
func ParseTables(data []byte) ([]TableDescriptor, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}

	seen := make(map[string]bool, len(f.Tables))
	for i := range f.Tables {
		t := &f.Tables[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("table %d: missing name", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("table %q declared twice", t.Name)
		}
		seen[t.Name] = true

		if t.Source == "" {
			t.Source = SourceExternal
			if len(t.Data) > 0 {
				t.Source = SourceInline
			}
		}
	}
	return f.Tables, nil
}

// LoadTablesFile reads a YAML table list from disk.
func LoadTablesFile(path string) ([]TableDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}
	return ParseTables(data)
}

// inlineNames returns the declared value names in a stable order.
func (t TableDescriptor) inlineNames() []string {
	names := make([]string, 0, len(t.Data))
	for name := range t.Data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// truthy reports whether an inline value should be written. Empty and zero
// values only register the point.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case uint64:
		return x != 0
	case float64:
		return x != 0
	}
	return true
}
