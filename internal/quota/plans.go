package quota

import (
	"fmt"
	"time"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

var planLimits = map[enums.Plan]int{
	enums.PlanFree:    5,
	enums.PlanStarter: 50,
	enums.PlanGrowth:  500,
}

// LimitFor returns the monthly invoice allowance. ok is false for unlimited plans.
func LimitFor(plan enums.Plan) (limit int, ok bool) {
	limit, ok = planLimits[plan]
	return limit, ok
}

// NextTier returns the plan above the given one.
func NextTier(plan enums.Plan) (enums.Plan, bool) {
	plans := enums.Plans()
	for i, candidate := range plans {
		if candidate == plan && i+1 < len(plans) {
			return plans[i+1], true
		}
	}
	return "", false
}

// UpgradeHint names the next tier and its allowance.
func UpgradeHint(plan enums.Plan) string {
	next, ok := NextTier(plan)
	if !ok {
		return "Contact support to raise your invoice limit"
	}
	if limit, limited := LimitFor(next); limited {
		return fmt.Sprintf("Upgrade to the %s plan to send up to %d invoices per month", next, limit)
	}
	return fmt.Sprintf("Upgrade to the %s plan to send unlimited invoices", next)
}

// NextPeriodStart returns midnight UTC on the first day of the month after now.
func NextPeriodStart(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
