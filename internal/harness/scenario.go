package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cppcell/internal/ir"
)

// Scenario is a scripted interactive session.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Toolchain is "fake" (default) or "system".
	Toolchain string `yaml:"toolchain,omitempty"`

	// PrintInfos enables informational lines and compiler output.
	PrintInfos bool `yaml:"print_infos,omitempty"`

	// VIN binds program input to a fake virtual-input service. Without it
	// programs read from the null device.
	VIN *VINSetup `yaml:"vin,omitempty"`

	// Input lines answer the program's input requests in order.
	Input []string `yaml:"input,omitempty"`

	// Cells are submitted in order to one session.
	Cells []Cell `yaml:"cells"`

	// Assertions validate the final registry, journal and input.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// VINSetup configures the fake virtual-input service.
type VINSetup struct {
	// Notifications is how many input requests each program run makes.
	Notifications int `yaml:"notifications"`
}

// Cell is one submission.
type Cell struct {
	// Code is the raw cell text, directives included.
	Code string `yaml:"code"`

	// Expect validates the submission's result. If nil, the cell must
	// succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected result of one cell.
type Expect struct {
	Status    ir.Status    `yaml:"status"`
	ErrorKind ir.ErrorKind `yaml:"error_kind,omitempty"`
	ExitCode  *int         `yaml:"exit_code,omitempty"`

	// Stdout, when set, must equal the cell's whole standard output.
	Stdout *string `yaml:"stdout,omitempty"`

	StdoutContains []string `yaml:"stdout_contains,omitempty"`
	StderrContains []string `yaml:"stderr_contains,omitempty"`
}

// Assertion validates final session state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Name is the library name (library).
	Name string `yaml:"name,omitempty"`

	// Header and Binary require the record's paths to be set or unset (library).
	Header *bool `yaml:"header,omitempty"`
	Binary *bool `yaml:"binary,omitempty"`

	// Deps is the record's full dependency set (library).
	Deps []string `yaml:"deps,omitempty"`

	// Cell is the 1-based cell index (link_set).
	Cell int `yaml:"cell,omitempty"`

	// Names is the expected link set (link_set).
	Names []string `yaml:"names,omitempty"`

	// Lines are the expected payloads (input_supplied).
	Lines []string `yaml:"lines,omitempty"`

	// Count is the expected number (registry_size, cycles).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertLibrary       = "library"
	AssertRegistrySize  = "registry_size"
	AssertLinkSet       = "link_set"
	AssertInputSupplied = "input_supplied"
	AssertCycles        = "cycles"
)

// Toolchain names.
const (
	ToolchainFake   = "fake"
	ToolchainSystem = "system"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Toolchain {
	case "", ToolchainFake, ToolchainSystem:
	default:
		return fmt.Errorf("unknown toolchain %q (want %s or %s)", s.Toolchain, ToolchainFake, ToolchainSystem)
	}

	if s.VIN != nil && s.VIN.Notifications < 0 {
		return fmt.Errorf("vin.notifications must be non-negative")
	}

	if len(s.Cells) == 0 {
		return fmt.Errorf("cells list is required and must be non-empty")
	}

	for i, cell := range s.Cells {
		if cell.Code == "" {
			return fmt.Errorf("cells[%d]: code is required", i)
		}
		if cell.Expect == nil {
			continue
		}
		switch cell.Expect.Status {
		case ir.StatusOK:
			if cell.Expect.ErrorKind != "" {
				return fmt.Errorf("cells[%d].expect: error_kind requires status error", i)
			}
		case ir.StatusError:
		default:
			return fmt.Errorf("cells[%d].expect: status must be ok or error", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Cells)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, cells int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLibrary:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for library", index)
		}
	case AssertRegistrySize, AssertCycles:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertLinkSet:
		if a.Cell < 1 || a.Cell > cells {
			return fmt.Errorf("assertions[%d]: cell must be between 1 and %d for link_set", index, cells)
		}
	case AssertInputSupplied:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
