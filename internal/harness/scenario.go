package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/trustlog/internal/ledger"
	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
)

// Scenario is a single test case loaded from YAML.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Thresholds overrides the verification thresholds. Zero fields keep
	// their defaults.
	Thresholds *ThresholdsSpec `yaml:"thresholds,omitempty"`

	// Log is the operation log in wire format.
	Log []map[string]any `yaml:"log"`

	// Assertions are checked against the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// ThresholdsSpec is the YAML form of member.Thresholds.
type ThresholdsSpec struct {
	ToVerify int `yaml:"to_verify,omitempty"`
	ToFlag   int `yaml:"to_flag,omitempty"`
}

// Assertion is a check against the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Member is the member under test.
	Member string `yaml:"member,omitempty"`

	// OpType is the operation type for can_create and missing_member.
	OpType string `yaml:"op_type,omitempty"`

	// Operation is the operation id for dropped.
	Operation string `yaml:"operation,omitempty"`

	// Code optionally narrows dropped to one drop code.
	Code string `yaml:"code,omitempty"`

	// Expect is the expected outcome of a boolean assertion.
	// Defaults to true.
	Expect *bool `yaml:"expect,omitempty"`

	// Count is the expected size for the *_count assertions.
	Count *int `yaml:"count,omitempty"`

	// Amount is the expected decimal for balance.
	Amount string `yaml:"amount,omitempty"`
}

// Assertion types.
const (
	AssertExists          = "exists"
	AssertIsVerified      = "is_verified"
	AssertGoodStanding    = "good_standing"
	AssertCanFlag         = "can_flag"
	AssertCanCreate       = "can_create"
	AssertMissingMember   = "missing_member"
	AssertVerifiedByCount = "verified_by_count"
	AssertFlagCount       = "flag_count"
	AssertBalance         = "balance"
	AssertDropped         = "dropped"
)

// Expected returns the expected outcome of a boolean assertion.
func (a Assertion) Expected() bool {
	if a.Expect == nil {
		return true
	}
	return *a.Expect
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
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

// ScenarioFiles returns the .yaml and .yml files in dir, sorted by file
// name.
func ScenarioFiles(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob scenarios: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadScenarios loads every scenario file in dir. The first file that
// fails to load aborts the whole load.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := ScenarioFiles(dir)
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// Operations decodes the scenario log. Entries without an id are given
// "op-N" by position.
func (s *Scenario) Operations() ([]op.Operation, error) {
	ops := make([]op.Operation, 0, len(s.Log))
	for i, entry := range s.Log {
		wire := make(map[string]any, len(entry)+1)
		for k, v := range entry {
			wire[k] = v
		}
		if _, ok := wire["id"]; !ok {
			wire["id"] = fmt.Sprintf("op-%d", i+1)
		}
		raw, err := json.Marshal(wire)
		if err != nil {
			return nil, fmt.Errorf("log[%d]: %w", i, err)
		}
		o, err := op.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("log[%d]: %w", i, err)
		}
		ops = append(ops, o)
	}
	return ops, nil
}

// MemberThresholds returns the thresholds the scenario runs with.
func (s *Scenario) MemberThresholds() member.Thresholds {
	t := member.DefaultThresholds()
	if s.Thresholds == nil {
		return t
	}
	if s.Thresholds.ToVerify != 0 {
		t.ToVerify = s.Thresholds.ToVerify
	}
	if s.Thresholds.ToFlag != 0 {
		t.ToFlag = s.Thresholds.ToFlag
	}
	return t
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if err := s.MemberThresholds().Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	if _, err := s.Operations(); err != nil {
		return err
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion checks that an assertion has the fields its type needs.
func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needMember := func() error {
		if a.Member == "" {
			return fmt.Errorf("assertions[%d]: member is required for %s", index, a.Type)
		}
		return nil
	}
	needOpType := func() error {
		if a.OpType == "" {
			return fmt.Errorf("assertions[%d]: op_type is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertExists, AssertIsVerified, AssertGoodStanding, AssertCanFlag:
		return needMember()
	case AssertCanCreate:
		return needOpType()
	case AssertMissingMember:
		if err := needOpType(); err != nil {
			return err
		}
		return needMember()
	case AssertVerifiedByCount, AssertFlagCount:
		if err := needMember(); err != nil {
			return err
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertBalance:
		if err := needMember(); err != nil {
			return err
		}
		if _, err := ledger.Parse(a.Amount); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertDropped:
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for dropped", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
