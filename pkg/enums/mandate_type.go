package enums

import "fmt"

// MandateType discriminates the three mandate documents in a chain.
type MandateType string

const (
	MandateTypeIntent  MandateType = "intent"
	MandateTypeCart    MandateType = "cart"
	MandateTypePayment MandateType = "payment"
)

var validMandateTypes = []MandateType{
	MandateTypeIntent,
	MandateTypeCart,
	MandateTypePayment,
}

// String implements fmt.Stringer.
func (m MandateType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MandateType.
func (m MandateType) IsValid() bool {
	for _, candidate := range validMandateTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMandateType converts raw input into a MandateType.
func ParseMandateType(value string) (MandateType, error) {
	for _, candidate := range validMandateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid mandate type %q", value)
}
