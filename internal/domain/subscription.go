package domain

// Subscription plan names as they appear in payment references.
const (
	PlanMonthly    = "monthly"
	PlanQuarterly  = "quarterly"
	PlanSemiAnnual = "semi_annual"
	PlanAnnual     = "annual"
)

var planDurations = map[string]int{
	PlanMonthly:    1,
	PlanQuarterly:  3,
	PlanSemiAnnual: 6,
	PlanAnnual:     12,
}

// PlanDurationMonths maps a plan name to its duration. Unknown plan names
// fall back to one month; callers are expected to log that case.
func PlanDurationMonths(plan string) (months int, known bool) {
	if m, ok := planDurations[plan]; ok {
		return m, true
	}
	return 1, false
}
