package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"googlemaps.github.io/maps"

	"vtc/internal/types"
)

func directionsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/directions/json") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("origin"); got != "48.856600,2.352200" {
			t.Errorf("origin = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouteService_Route(t *testing.T) {
	srv := directionsServer(t, `{"status":"OK","routes":[{"summary":"A1","legs":[
		{"distance":{"value":23456,"text":"23.5 km"},"duration":{"value":1830,"text":"31 mins"}}
	],"overview_polyline":{"points":"_p~iF~ps|U"}}]}`)

	svc, err := NewRouteService("test-key", Options{Language: "fr"}, maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.Route(context.Background(), types.Point{Lat: 48.8566, Lng: 2.3522}, types.Point{Lat: 49.0097, Lng: 2.5479})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 23456 m, 1830 s
	if got.DistanceKm != 23.46 || got.DurationMinutes != 30.5 || got.Polyline != "_p~iF~ps|U" {
		t.Errorf("got %+v", got)
	}
}

func TestRouteService_NoRoute(t *testing.T) {
	srv := directionsServer(t, `{"status":"OK","routes":[]}`)
	svc, err := NewRouteService("test-key", Options{}, maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Route(context.Background(), types.Point{Lat: 48.8566, Lng: 2.3522}, types.Point{Lat: 49.0097, Lng: 2.5479})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}
