package pricing

import (
	"errors"
	"testing"
)

func quotedResult() Result {
	return Result{
		ID:                     "q1",
		PricingMode:            ModeClientDirect,
		Price:                  100,
		Currency:               "EUR",
		InternalCost:           80,
		Margin:                 20,
		MarginPercent:          20,
		ProfitabilityIndicator: ProfitabilityGreen,
		ProfitabilityData:      ProfitabilityData{Indicator: ProfitabilityGreen, MarginPercent: 20, GreenThreshold: 20, OrangeThreshold: 0},
		AppliedRules:           NewAuditTrail(newRule("base", DynamicBasePayload{PriceWithMargin: 100})),
		Validation:             &ValidationResult{Status: ValidationValid, MarginBandMinPercent: -50, MarginBandMaxPercent: 80},
	}
}

func TestApplyPriceOverride(t *testing.T) {
	orig := quotedResult()
	minimum := 15.0

	got, err := ApplyPriceOverride(orig, 120, "loyal client", &minimum)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 120 - 80 = 40; 40 / 120 = 33.33%
	if got.Price != 120 || got.Margin != 40 || got.MarginPercent != 33.33 {
		t.Errorf("got price %v margin %v (%v%%)", got.Price, got.Margin, got.MarginPercent)
	}
	if got.PricingMode != ModeManual || !got.OverrideApplied || got.ProfitabilityIndicator != ProfitabilityGreen {
		t.Errorf("unexpected mode/flags %s %v %s", got.PricingMode, got.OverrideApplied, got.ProfitabilityIndicator)
	}
	rule, ok := got.AppliedRules.Find(RuleManualOverride)
	if !ok {
		t.Fatal("manual override rule missing")
	}
	if p := rule.Payload.(ManualOverridePayload); p.PreviousPrice != 100 || p.PriceChange != 20 || p.PreviousMode != ModeClientDirect {
		t.Errorf("unexpected payload %+v", p)
	}
	if got.Validation == nil || got.Validation == orig.Validation {
		t.Error("override must carry its own validation")
	}

	// the input result is untouched
	if orig.Price != 100 || orig.PricingMode != ModeClientDirect || orig.OverrideApplied || orig.AppliedRules.Len() != 1 {
		t.Errorf("original result mutated: %+v", orig)
	}
}

func TestApplyPriceOverride_Rejections(t *testing.T) {
	minimum := 15.0
	tests := []struct {
		name    string
		price   float64
		minimum *float64
		code    OverrideErrorCode
		pct     float64
	}{
		// 90 - 80 = 10; 10 / 90 = 11.11% < 15%
		{"below minimum margin", 90, &minimum, OverrideBelowMinimumMargin, 11.11},
		{"zero price", 0, nil, OverrideInvalidPrice, 0},
		{"negative price", -10, &minimum, OverrideInvalidPrice, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyPriceOverride(quotedResult(), tt.price, "", tt.minimum)
			var oe *OverrideError
			if !errors.As(err, &oe) {
				t.Fatalf("expected *OverrideError, got %v", err)
			}
			if oe.Code != tt.code || oe.ResultingMarginPercent != tt.pct {
				t.Errorf("got %s at %v%%, want %s at %v%%", oe.Code, oe.ResultingMarginPercent, tt.code, tt.pct)
			}
		})
	}
}

func TestApplyPriceOverride_NoMinimum(t *testing.T) {
	got, err := ApplyPriceOverride(quotedResult(), 60, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 60 - 80 = -20; -20 / 60 = -33.33%
	if got.Margin != -20 || got.MarginPercent != -33.33 || got.ProfitabilityIndicator != ProfitabilityRed {
		t.Errorf("got %v (%v%%) %s", got.Margin, got.MarginPercent, got.ProfitabilityIndicator)
	}
}
