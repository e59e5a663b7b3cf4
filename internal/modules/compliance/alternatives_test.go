package compliance

import "testing"

func violatingResult(drivingMinutes, amplitudeMinutes float64) Result {
	rules := DefaultRules()
	res := Result{
		RegulatoryCategory: CategoryHeavy,
		EffectiveRules:     rules,
		AdjustedDurations: AdjustedDurations{
			AdjustedDrivingMinutes:   drivingMinutes,
			AdjustedAmplitudeMinutes: amplitudeMinutes,
		},
	}
	if drivingMinutes/60 > rules.MaxDailyDrivingHours {
		res.Violations = append(res.Violations, Violation{Type: ViolationDrivingTime, Actual: drivingMinutes / 60, Limit: rules.MaxDailyDrivingHours})
	}
	if amplitudeMinutes/60 > rules.MaxDailyAmplitudeHours {
		res.Violations = append(res.Violations, Violation{Type: ViolationAmplitude, Actual: amplitudeMinutes / 60, Limit: rules.MaxDailyAmplitudeHours})
	}
	return res
}

func option(t *testing.T, gen GenerationResult, mode StaffingMode) AlternativeOption {
	t.Helper()
	for _, a := range gen.Alternatives {
		if a.Mode == mode {
			return a
		}
	}
	t.Fatalf("alternative %s not generated", mode)
	return AlternativeOption{}
}

func TestGenerateAlternatives_DrivingViolation(t *testing.T) {
	gen := GenerateAlternatives(violatingResult(570, 630), DefaultStaffingParams())
	if !gen.HasViolations || len(gen.Alternatives) != 3 {
		t.Fatalf("expected 3 alternatives, got %+v", gen)
	}

	dc := option(t, gen, StaffingDoubleCrew)
	if !dc.IsFeasible || !dc.WouldBeCompliant {
		t.Errorf("double crew on 10.5h amplitude must be feasible and compliant, got %+v", dc)
	}
	// 10.5h * 25 + hotel 90 + meal 30 + premium 50
	if dc.AdditionalCost.Total != 432.5 {
		t.Errorf("expected double crew cost 432.5, got %v", dc.AdditionalCost.Total)
	}

	relay := option(t, gen, StaffingRelayDriver)
	if !relay.WouldBeCompliant || relay.AdditionalCost.Total != 118.75 {
		t.Errorf("unexpected relay option %+v", relay)
	}
	if relay.Schedule.HandoverAfterMinutes != 285 {
		t.Errorf("expected handover after 285 minutes, got %v", relay.Schedule.HandoverAfterMinutes)
	}

	md := option(t, gen, StaffingMultiDay)
	if md.Schedule.Days != 2 || !md.WouldBeCompliant {
		t.Errorf("expected compliant 2-day plan, got %+v", md)
	}
	// 1 night 90 + 2 days meals 60 + 1 extra day 200
	if md.AdditionalCost.Total != 350 {
		t.Errorf("expected multi day cost 350, got %v", md.AdditionalCost.Total)
	}
}

func TestGenerateAlternatives_RelayKeepsAmplitudeViolation(t *testing.T) {
	gen := GenerateAlternatives(violatingResult(480, 900), DefaultStaffingParams())
	relay := option(t, gen, StaffingRelayDriver)
	if !relay.IsFeasible || relay.WouldBeCompliant {
		t.Errorf("relay is feasible but cannot fix amplitude, got %+v", relay)
	}
	if len(relay.ResidualViolations) != 1 || relay.ResidualViolations[0].Type != ViolationAmplitude {
		t.Errorf("expected residual amplitude violation, got %+v", relay.ResidualViolations)
	}
}

func TestGenerateAlternatives_CompliantMission(t *testing.T) {
	gen := GenerateAlternatives(violatingResult(300, 400), DefaultStaffingParams())
	if gen.HasViolations || len(gen.Alternatives) != 0 {
		t.Errorf("expected no alternatives, got %+v", gen)
	}
	sel := SelectBestStaffingPlan(gen, PolicyCheapest)
	if sel.IsRequired || sel.SelectedPlan != nil {
		t.Errorf("expected no staffing required, got %+v", sel)
	}
}

func TestSelectBestStaffingPlan_Policies(t *testing.T) {
	cases := []struct {
		name      string
		driving   float64
		amplitude float64
		policy    SelectionPolicy
		want      StaffingMode
	}{
		{"cheapest driving", 570, 630, PolicyCheapest, StaffingRelayDriver},
		{"fastest driving", 570, 630, PolicyFastest, StaffingRelayDriver},
		{"internal driving", 570, 630, PolicyPreferInternal, StaffingDoubleCrew},
		{"cheapest amplitude", 480, 900, PolicyCheapest, StaffingMultiDay},
		{"fastest amplitude", 480, 900, PolicyFastest, StaffingDoubleCrew},
		{"internal amplitude", 480, 900, PolicyPreferInternal, StaffingDoubleCrew},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gen := GenerateAlternatives(violatingResult(c.driving, c.amplitude), DefaultStaffingParams())
			sel := SelectBestStaffingPlan(gen, c.policy)
			if !sel.IsRequired || sel.SelectedPlan == nil {
				t.Fatalf("expected a selected plan, got %+v", sel)
			}
			if sel.SelectedPlan.Mode != c.want {
				t.Errorf("expected %s, got %s", c.want, sel.SelectedPlan.Mode)
			}
			if sel.RequiresManualReview {
				t.Errorf("manual review must not be required when a plan is selected")
			}
		})
	}
}

func TestSelectBestStaffingPlan_ManualReview(t *testing.T) {
	params := DefaultStaffingParams()
	params.MaxMissionDays = 2
	gen := GenerateAlternatives(violatingResult(1200, 1500), params)
	sel := SelectBestStaffingPlan(gen, PolicyCheapest)
	if !sel.IsRequired || sel.SelectedPlan != nil || !sel.RequiresManualReview {
		t.Fatalf("expected manual review without selection, got %+v", sel)
	}
	if sel.ManualReviewCandidate == nil || sel.ManualReviewCandidate.Mode != StaffingRelayDriver {
		t.Errorf("expected cheapest candidate RELAY_DRIVER, got %+v", sel.ManualReviewCandidate)
	}
	if sel.SelectedCost() != 0 {
		t.Errorf("expected zero selected cost, got %v", sel.SelectedCost())
	}
}

func TestParsePolicy(t *testing.T) {
	if ParsePolicy("") != PolicyCheapest || ParsePolicy("bogus") != PolicyCheapest {
		t.Errorf("unknown policies must default to CHEAPEST")
	}
	if ParsePolicy("FASTEST") != PolicyFastest {
		t.Errorf("expected FASTEST")
	}
}
