package pricing

import (
	"testing"

	"vtc/internal/modules/zone"
)

func checkStatus(t *testing.T, v ValidationResult, name string) CheckStatus {
	t.Helper()
	for _, c := range v.Checks {
		if c.Name == name {
			return c.Status
		}
	}
	t.Fatalf("check %s missing", name)
	return ""
}

func TestValidateResult(t *testing.T) {
	quoted, err := CalculatePrice(transferRequest(), directContext())
	if err != nil {
		t.Fatal(err)
	}
	s := OrganizationSettings{}.Resolve()

	cases := []struct {
		name      string
		mutate    func(r *Result)
		want      ValidationStatus
		check     string
		checkWant CheckStatus
	}{
		{"quoted transfer", func(r *Result) {}, ValidationValid, "COST_SUM", CheckPass},
		{"loss on direct price", func(r *Result) {
			r.Price, r.Margin, r.MarginPercent = 30, -12, -40
		}, ValidationInvalid, "PRICE_COVERS_COST", CheckFail},
		{"loss on contract price", func(r *Result) {
			r.PricingMode = ModePartnerGrid
			r.Price, r.Margin, r.MarginPercent = 30, -12, -40
		}, ValidationWarning, "MARGIN_NON_NEGATIVE", CheckWarning},
		{"margin above band", func(r *Result) {
			r.Price, r.Margin, r.MarginPercent = 420, 378, 90
		}, ValidationWarning, "MARGIN_BAND", CheckWarning},
		{"internal cost drift", func(r *Result) {
			r.InternalCost = r.TripAnalysis.TotalCost.Total * 2
		}, ValidationInvalid, "COST_SUM", CheckFail},
		{"zone multiplier never applied", func(r *Result) {
			r.ZoneTransparency = &zone.MultiplierResult{AppliedMultiplier: 1.2, Source: "pickup"}
		}, ValidationInvalid, "ZONE_MULTIPLIER_CONSISTENCY", CheckFail},
		{"no zone", func(r *Result) {
			r.ZoneTransparency = &zone.MultiplierResult{AppliedMultiplier: 1, Source: "none"}
		}, ValidationValid, "ZONE_MULTIPLIER_CONSISTENCY", CheckPass},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := quoted
			c.mutate(&r)
			v := ValidateResult(r, s)
			if v.Status != c.want {
				t.Errorf("status %s, want %s: %+v", v.Status, c.want, v.Checks)
			}
			if got := checkStatus(t, v, c.check); got != c.checkWant {
				t.Errorf("%s = %s, want %s", c.check, got, c.checkWant)
			}
		})
	}
}
