package enums

import "fmt"

// Plan is a tenant subscription tier. Each tier carries a monthly invoice quota.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanGrowth     Plan = "growth"
	PlanEnterprise Plan = "enterprise"
)

var validPlans = []Plan{
	PlanFree,
	PlanStarter,
	PlanGrowth,
	PlanEnterprise,
}

// String implements fmt.Stringer.
func (p Plan) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Plan.
func (p Plan) IsValid() bool {
	for _, candidate := range validPlans {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlan converts raw input into a Plan.
func ParsePlan(value string) (Plan, error) {
	for _, candidate := range validPlans {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan %q", value)
}

// Plans returns the tiers ordered from smallest to largest.
func Plans() []Plan {
	out := make([]Plan, len(validPlans))
	copy(out, validPlans)
	return out
}
