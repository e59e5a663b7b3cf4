package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	vtchttp "vtc/internal/http"
	"vtc/internal/modules/compliance"
	"vtc/internal/modules/pricing"
	"vtc/internal/types"
)

// stubLoader is a test double for handlers.ContextLoader.
type stubLoader struct {
	pc  pricing.Context
	err error
	org string
}

func (s *stubLoader) LoadContext(_ context.Context, orgID string, _ pricing.Request) (pricing.Context, error) {
	s.org = orgID
	return s.pc, s.err
}

func buildTestRouter(loader *stubLoader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	deps := vtchttp.RouterDeps{
		Calculator:  pricing.NewCalculator(nil),
		LiveSources: pricing.EstimateSources(),
		Counters:    compliance.NewCounterService(compliance.NewMemoryStore(), nil),
	}
	if loader != nil {
		deps.Contexts = loader
	}
	return vtchttp.NewRouter(deps)
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func fptr(v float64) *float64 { return &v }

// transfer is a 50km / 60min transfer priced at 120 with default settings.
func transfer() pricing.Request {
	dropoff := types.Point{Lat: 48.8666, Lng: 2.3522}
	return pricing.Request{
		ContactID:                "contact-1",
		VehicleCategoryID:        "sedan",
		TripType:                 pricing.TripTransfer,
		Pickup:                   types.Point{Lat: 48.8566, Lng: 2.3522},
		Dropoff:                  &dropoff,
		EstimatedDistanceKm:      fptr(50),
		EstimatedDurationMinutes: fptr(60),
	}
}

func directContext() pricing.Context {
	return pricing.Context{
		OrganizationID:  "org-1",
		Contact:         pricing.Contact{ID: "contact-1"},
		VehicleCategory: &pricing.VehicleCategory{ID: "sedan", Code: "SEDAN", RegulatoryCategory: compliance.CategoryLight},
	}
}

func TestHealth(t *testing.T) {
	w := doRequest(buildTestRouter(nil), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCalculate(t *testing.T) {
	r := buildTestRouter(nil)
	w := doRequest(r, http.MethodPost, "/api/pricing/calculate", map[string]any{
		"request": transfer(),
		"context": directContext(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decode[pricing.Result](t, w)
	if res.Price != 120 || res.PricingMode != pricing.ModeClientDirect {
		t.Errorf("got %v %s", res.Price, res.PricingMode)
	}
}

func TestCalculate_InvalidRequest(t *testing.T) {
	req := transfer()
	req.ContactID = ""
	w := doRequest(buildTestRouter(nil), http.MethodPost, "/api/pricing/calculate", map[string]any{
		"request": req,
		"context": directContext(),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := decode[struct {
		Fields []pricing.FieldError `json:"fields"`
	}](t, w)
	if len(body.Fields) == 0 || body.Fields[0].Field != "contactId" {
		t.Errorf("expected a contactId field error, got %+v", body.Fields)
	}

	w = doRequest(buildTestRouter(nil), http.MethodPost, "/api/pricing/calculate", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("an empty body must be rejected, got %d", w.Code)
	}
}

func TestQuote(t *testing.T) {
	cases := []struct {
		name   string
		loader *stubLoader
		want   int
	}{
		{"no repository", nil, http.StatusServiceUnavailable},
		{"unknown contact", &stubLoader{err: pricing.ErrNotFound}, http.StatusNotFound},
		{"priced", &stubLoader{pc: directContext()}, http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := doRequest(buildTestRouter(c.loader), http.MethodPost, "/api/organizations/org-1/quotes", transfer())
			if w.Code != c.want {
				t.Fatalf("expected %d, got %d: %s", c.want, w.Code, w.Body.String())
			}
			if c.loader != nil && c.loader.org != "org-1" {
				t.Errorf("loader called for %q", c.loader.org)
			}
		})
	}
}

func TestOverride(t *testing.T) {
	quoted, err := pricing.CalculatePrice(transfer(), directContext())
	if err != nil {
		t.Fatal(err)
	}
	r := buildTestRouter(nil)

	w := doRequest(r, http.MethodPost, "/api/pricing/override", map[string]any{
		"result":               quoted,
		"newPrice":             150,
		"reason":               "loyal customer",
		"minimumMarginPercent": 10,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	ok := decode[struct {
		Success bool           `json:"success"`
		Result  pricing.Result `json:"result"`
	}](t, w)
	if !ok.Success || ok.Result.Price != 150 || !ok.Result.OverrideApplied {
		t.Errorf("unexpected override response %+v", ok)
	}

	// internal cost 42: a price of 45 leaves 6.67% margin
	w = doRequest(r, http.MethodPost, "/api/pricing/override", map[string]any{
		"result":               quoted,
		"newPrice":             45,
		"minimumMarginPercent": 10,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	rejected := decode[map[string]any](t, w)
	if rejected["success"] != false || rejected["errorCode"] != string(pricing.OverrideBelowMinimumMargin) {
		t.Errorf("unexpected rejection %v", rejected)
	}
}

func TestComplianceValidate(t *testing.T) {
	w := doRequest(buildTestRouter(nil), http.MethodPost, "/api/compliance/validate", map[string]any{
		"input": compliance.Input{
			RegulatoryCategory: compliance.CategoryHeavy,
			Segments:           []compliance.Segment{{Name: "service", DistanceKm: 600, DurationMinutes: 600}},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	res := decode[compliance.Result](t, w)
	// 10h of driving exceeds the 9h limit
	if res.IsCompliant || len(res.Violations) == 0 {
		t.Errorf("expected a driving violation, got %+v", res)
	}
}

func TestComplianceAlternatives(t *testing.T) {
	w := doRequest(buildTestRouter(nil), http.MethodPost, "/api/compliance/alternatives", map[string]any{
		"input": compliance.Input{
			RegulatoryCategory: compliance.CategoryHeavy,
			Segments:           []compliance.Segment{{Name: "service", DistanceKm: 600, DurationMinutes: 600}},
		},
		"policy": "PREFER_INTERNAL",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode[struct {
		Alternatives compliance.GenerationResult  `json:"alternatives"`
		Selection    compliance.StaffingSelection `json:"selection"`
	}](t, w)
	if !body.Alternatives.HasViolations || !body.Selection.IsRequired || body.Selection.SelectedPlan == nil {
		t.Fatalf("expected a selected staffing plan, got %+v", body.Selection)
	}
	if body.Selection.SelectedPlan.Mode != compliance.StaffingDoubleCrew {
		t.Errorf("PREFER_INTERNAL must pick DOUBLE_CREW, got %s", body.Selection.SelectedPlan.Mode)
	}
}

func TestRSECounters(t *testing.T) {
	r := buildTestRouter(nil)
	key := compliance.CounterKey{OrganizationID: "org-1", DriverID: "d1", Date: "2026-10-17", RegulatoryCategory: compliance.CategoryHeavy}
	counterPath := "/api/rse/counters/d1?organizationId=org-1&date=2026-10-17&category=HEAVY"

	for i := 0; i < 2; i++ {
		w := doRequest(r, http.MethodPost, "/api/rse/activity", map[string]any{
			"key":      key,
			"activity": compliance.Activity{DrivingMinutes: 240, AmplitudeMinutes: 300},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("record: expected 200, got %d: %s", w.Code, w.Body.String())
		}
	}

	w := doRequest(r, http.MethodGet, counterPath, nil)
	counter := decode[compliance.DriverRSECounter](t, w)
	if counter.DrivingMinutes != 480 || counter.AmplitudeMinutes != 600 {
		t.Errorf("expected 480/600, got %v/%v", counter.DrivingMinutes, counter.AmplitudeMinutes)
	}

	// 480 + 120 = 600 min = 10h > 9h
	w = doRequest(r, http.MethodPost, "/api/rse/check", map[string]any{
		"key":      key,
		"proposed": compliance.Activity{DrivingMinutes: 120, AmplitudeMinutes: 120},
	})
	chk := decode[compliance.CumulativeCheck](t, w)
	if chk.IsCompliant || chk.Outcome != compliance.DecisionBlocked {
		t.Errorf("expected a blocked check, got %+v", chk)
	}

	w = doRequest(r, http.MethodPost, "/api/rse/decisions", compliance.DecisionInput{Key: key, Reason: "quote q1", Violations: chk.Violations})
	if w.Code != http.StatusCreated {
		t.Fatalf("decision: expected 201, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, "/api/rse/decisions/d1?organizationId=org-1", nil)
	decisions := decode[[]compliance.Decision](t, w)
	if len(decisions) != 1 || decisions[0].Outcome != compliance.DecisionBlocked || decisions[0].Counters.DrivingMinutes != 480 {
		t.Errorf("unexpected audit log %+v", decisions)
	}

	if w = doRequest(r, http.MethodDelete, counterPath, nil); w.Code != http.StatusNoContent {
		t.Fatalf("reset: expected 204, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, counterPath, nil)
	if decode[compliance.DriverRSECounter](t, w).DrivingMinutes != 0 {
		t.Errorf("counter must be zero after reset")
	}
}

func TestRSE_BadInput(t *testing.T) {
	r := buildTestRouter(nil)
	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"missing organization", http.MethodGet, "/api/rse/counters/d1?date=2026-10-17", nil},
		{"bad date", http.MethodGet, "/api/rse/counters/d1?organizationId=org-1&date=17/10/2026", nil},
		{"negative minutes", http.MethodPost, "/api/rse/activity", map[string]any{
			"key":      compliance.CounterKey{OrganizationID: "org-1", DriverID: "d1", Date: "2026-10-17", RegulatoryCategory: compliance.CategoryHeavy},
			"activity": compliance.Activity{DrivingMinutes: -5},
		}},
		{"decisions without organization", http.MethodGet, "/api/rse/decisions/d1", nil},
		{"unknown category query", http.MethodGet, "/api/rse/counters/d1?organizationId=org-1&date=2026-10-17&category=BUS", nil},
		{"lower case category", http.MethodPost, "/api/rse/check", map[string]any{
			"key":      map[string]any{"organizationId": "org-1", "driverId": "d1", "date": "2026-10-17", "regulatoryCategory": "heavy"},
			"proposed": compliance.Activity{DrivingMinutes: 1260},
		}},
		{"missing category", http.MethodPost, "/api/rse/activity", map[string]any{
			"key":      map[string]any{"organizationId": "org-1", "driverId": "d1", "date": "2026-10-17"},
			"activity": compliance.Activity{DrivingMinutes: 60},
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if w := doRequest(r, c.method, c.path, c.body); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}
