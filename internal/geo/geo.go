// Package geo contains pure geographic computation helpers built on the s2 geometry library.
package geo

import (
	"math"

	"github.com/golang/geo/s2"

	"vtc/internal/types"
)

const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometres between two points.
func HaversineKm(a, b types.Point) float64 {
	return angleKm(s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng)).Radians())
}

func angleKm(radians float64) float64 {
	return radians * EarthRadiusKm
}

func toS2(p types.Point) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng))
}

// PolygonContains reports whether p lies inside the polygon described by vertices.
// Vertex order does not matter; the loop is normalized to enclose the smaller area.
// The closing vertex may be repeated.
func PolygonContains(vertices []types.Point, p types.Point) bool {
	if len(vertices) > 1 && vertices[0] == vertices[len(vertices)-1] {
		vertices = vertices[:len(vertices)-1]
	}
	if len(vertices) < 3 {
		return false
	}
	pts := make([]s2.Point, len(vertices))
	for i, v := range vertices {
		pts[i] = toS2(v)
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop.ContainsPoint(toS2(p))
}

// DistanceToPathKm returns the shortest distance from p to the polyline path.
func DistanceToPathKm(path []types.Point, p types.Point) float64 {
	switch len(path) {
	case 0:
		return math.Inf(1)
	case 1:
		return HaversineKm(path[0], p)
	}
	line := make(s2.Polyline, len(path))
	for i, v := range path {
		line[i] = toS2(v)
	}
	target := toS2(p)
	closest, _ := line.Project(target)
	return angleKm(float64(closest.Distance(target)))
}

// Centroid returns the arithmetic mean of points.
func Centroid(points []types.Point) types.Point {
	if len(points) == 0 {
		return types.Point{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	return types.Point{Lat: lat / float64(len(points)), Lng: lng / float64(len(points))}
}
