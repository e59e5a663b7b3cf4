// README: Live routing on the Google Maps Directions API.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"googlemaps.github.io/maps"

	"vtc/internal/modules/pricing"
	"vtc/internal/types"
)

var ErrNoRoute = errors.New("no route found")

// RouteService resolves driving legs. It implements pricing.RouteSource.
type RouteService struct {
	client   *maps.Client
	language string
	region   string
	timeout  time.Duration
}

type Options struct {
	Language string
	Region   string
	// Timeout bounds one Directions call; zero means the caller's context only.
	Timeout time.Duration
}

// NewRouteService creates a RouteService with the given API key. Extra client options
// (base URL, HTTP client) are passed through to the maps client.
func NewRouteService(apiKey string, o Options, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, language: o.Language, region: o.Region, timeout: o.Timeout}, nil
}

// Route returns the driving distance, duration and overview polyline from one point to another.
func (s *RouteService) Route(ctx context.Context, from, to types.Point) (pricing.Route, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	r := &maps.DirectionsRequest{
		Origin:      latLng(from),
		Destination: latLng(to),
		Mode:        maps.TravelModeDriving,
		Language:    s.language,
		Region:      s.region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return pricing.Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return pricing.Route{}, ErrNoRoute
	}

	var meters int
	var duration time.Duration
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
		duration += leg.Duration
	}
	return pricing.Route{
		DistanceKm:      types.Round(float64(meters)/1000, 2),
		DurationMinutes: types.Round(duration.Minutes(), 2),
		Polyline:        routes[0].OverviewPolyline.Points,
	}, nil
}

func latLng(p types.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}
