package schema

import (
	"strings"

	ormerrors "github.com/litemap/litemap/internal/orm/errors"
)

// Casing decides how table and column names are normalized
type Casing int

const (
	CaseLower Casing = iota
	CaseUpper
	CaseKeep
)

// String returns the configuration spelling of the policy
func (c Casing) String() string {
	switch c {
	case CaseLower:
		return "lower"
	case CaseUpper:
		return "upper"
	case CaseKeep:
		return "keep"
	default:
		return "unknown"
	}
}

// ParseCasing reads a casing policy. The empty string means lower.
func ParseCasing(s string) (Casing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lower":
		return CaseLower, nil
	case "upper":
		return CaseUpper, nil
	case "keep":
		return CaseKeep, nil
	default:
		return 0, ormerrors.Configuration("cases", "invalid casing policy %q, expected upper, lower or keep", s)
	}
}

// Normalize applies the policy to a name
func (c Casing) Normalize(name string) string {
	switch c {
	case CaseUpper:
		return strings.ToUpper(name)
	case CaseKeep:
		return name
	default:
		return strings.ToLower(name)
	}
}
