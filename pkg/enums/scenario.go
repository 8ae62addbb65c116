package enums

import "fmt"

// Scenario distinguishes human-present purchases from delegated ones.
type Scenario string

const (
	ScenarioImmediate Scenario = "immediate"
	ScenarioDelegated Scenario = "delegated"
)

var validScenarios = []Scenario{
	ScenarioImmediate,
	ScenarioDelegated,
}

// String implements fmt.Stringer.
func (s Scenario) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Scenario.
func (s Scenario) IsValid() bool {
	for _, candidate := range validScenarios {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseScenario converts raw input into a Scenario.
func ParseScenario(value string) (Scenario, error) {
	for _, candidate := range validScenarios {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scenario %q", value)
}
