package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vtc/internal/modules/pricing"
)

// 50km / 60min transfer: 50 * 2.00 = 100, with the 20% target margin 120.
const transferQuote = `
request:
  contactId: contact-1
  vehicleCategoryId: sedan
  tripType: transfer
  pickup: {lat: 48.8566, lng: 2.3522}
  dropoff: {lat: 48.8666, lng: 2.3522}
  estimatedDistanceKm: 50
  estimatedDurationMinutes: 60
context:
  organizationId: org-1
  contact:
    id: contact-1
  vehicleCategory:
    id: sedan
    code: SEDAN
    regulatoryCategory: LIGHT
  settings:
    difficultyMultipliers:
      3: 1.1
`

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.yaml")
	if err := os.WriteFile(path, []byte(transferQuote), 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(path, nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res pricing.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("output is not a result: %v", err)
	}
	if res.Price != 120 || res.PricingMode != pricing.ModeClientDirect {
		t.Errorf("got %v %s", res.Price, res.PricingMode)
	}
}

func TestRun_Stdin(t *testing.T) {
	var out bytes.Buffer
	if err := run("-", strings.NewReader(transferQuote), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), `"pricingMode": "CLIENT_DIRECT"`) {
		t.Errorf("unexpected output %s", out.String())
	}
}

func TestRun_Errors(t *testing.T) {
	if err := run("", nil, &bytes.Buffer{}); err == nil {
		t.Error("a missing -file must fail")
	}
	invalid := strings.Replace(transferQuote, "contactId: contact-1", "contactId: \"\"", 1)
	err := run("-", strings.NewReader(invalid), &bytes.Buffer{})
	if !errors.Is(err, pricing.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if err := run("-", strings.NewReader("request: [unterminated"), &bytes.Buffer{}); err == nil {
		t.Error("malformed YAML must fail")
	}
}
