package enums

import "fmt"

// SignerRole identifies which key namespace produced a mandate signature.
// Each role owns independent key material; a signature made under one role
// never verifies against another role's keys.
type SignerRole string

const (
	SignerRoleUser         SignerRole = "user"
	SignerRoleAgent        SignerRole = "agent"
	SignerRolePaymentAgent SignerRole = "payment_agent"
)

var validSignerRoles = []SignerRole{
	SignerRoleUser,
	SignerRoleAgent,
	SignerRolePaymentAgent,
}

// String implements fmt.Stringer.
func (s SignerRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SignerRole.
func (s SignerRole) IsValid() bool {
	for _, candidate := range validSignerRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSignerRole converts raw input into a SignerRole.
func ParseSignerRole(value string) (SignerRole, error) {
	for _, candidate := range validSignerRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid signer role %q", value)
}
