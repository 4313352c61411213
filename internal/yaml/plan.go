package yaml

import (
	"errors"
	"fmt"
	"os"
	"time"

	yamlv3 "gopkg.in/yaml.v3"
)

const (
	CurrentSchemaVersion = 1
	PlanFileType         = "plan"
)

// PlanFile is the on-disk form of a search result.
type PlanFile struct {
	SchemaVersion int        `yaml:"schema_version"`
	FileType      string     `yaml:"file_type"`
	RunID         string     `yaml:"run_id,omitempty"`
	Domain        string     `yaml:"domain"`
	Problem       string     `yaml:"problem"`
	Status        string     `yaml:"status"`
	Reason        string     `yaml:"reason,omitempty"`
	Cost          float64    `yaml:"cost"`
	Makespan      float64    `yaml:"makespan"`
	Expanded      int        `yaml:"expanded"`
	Generated     int        `yaml:"generated"`
	CreatedAt     time.Time  `yaml:"created_at"`
	Steps         []PlanStep `yaml:"steps"`
}

type PlanStep struct {
	Start    float64 `yaml:"start"`
	Action   string  `yaml:"action"`
	Duration float64 `yaml:"duration"`
}

type SchemaHeader struct {
	SchemaVersion int    `yaml:"schema_version"`
	FileType      string `yaml:"file_type"`
}

// ErrCorrupt marks a plan file that is not valid YAML or has a bad header.
var ErrCorrupt = errors.New("corrupt plan file")

func ValidateSchemaHeader(content []byte, expectedFileType string) error {
	var header SchemaHeader
	if err := yamlv3.Unmarshal(content, &header); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if header.SchemaVersion < 1 {
		return fmt.Errorf("invalid schema_version %d (must be >= 1)", header.SchemaVersion)
	}
	if header.SchemaVersion > CurrentSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d (max supported: %d)", header.SchemaVersion, CurrentSchemaVersion)
	}
	if header.FileType == "" {
		return fmt.Errorf("missing file_type")
	}
	if expectedFileType != "" && header.FileType != expectedFileType {
		return fmt.Errorf("file_type mismatch: got %q, expected %q", header.FileType, expectedFileType)
	}
	return nil
}

// WritePlan stamps the header fields and writes p atomically.
func WritePlan(path string, p *PlanFile) error {
	p.SchemaVersion = CurrentSchemaVersion
	p.FileType = PlanFileType
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Steps == nil {
		p.Steps = []PlanStep{}
	}
	return AtomicWrite(path, p)
}

func ReadPlan(path string) (*PlanFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	if err := ValidateSchemaHeader(content, PlanFileType); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	var p PlanFile
	if err := yamlv3.Unmarshal(content, &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return &p, nil
}

// LoadPlan reads a plan file, recovering a corrupt one from its backup.
// The corrupt file is moved under quarantineDir first.
func LoadPlan(quarantineDir, path string) (*PlanFile, error) {
	p, err := ReadPlan(path)
	if err == nil || !errors.Is(err, ErrCorrupt) {
		return p, err
	}
	if qerr := Quarantine(quarantineDir, path); qerr != nil {
		return nil, fmt.Errorf("quarantine failed: %w", qerr)
	}
	if rerr := RestoreFromBackup(path); rerr != nil {
		return nil, fmt.Errorf("%w (no usable backup: %v)", err, rerr)
	}
	return ReadPlan(path)
}
