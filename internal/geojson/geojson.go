// Package geojson serializes transit routes and stops into GeoJSON
// FeatureCollections for the controller's progress events and final export.
package geojson

import (
	"github.com/transit-works/route-optimizer/internal/optmodel"
	"github.com/transit-works/route-optimizer/internal/transitlayer"
)

// Feature is a single GeoJSON Feature with an arbitrary property bag.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry is a GeoJSON LineString or Point geometry.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// FeatureCollection wraps a set of Features.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Collection builds a FeatureCollection covering every route in routeIDs
// (as LineString features) plus every stop those routes reference (as
// Point features), resolving stops and geometry through layer.
func Collection(layer *transitlayer.TransitLayer, routeIDs []string) FeatureCollection {
	var features []Feature
	seenStops := make(map[string]bool)

	for _, id := range routeIDs {
		route, ok := layer.GetRoute(id)
		if !ok {
			continue
		}
		features = append(features, routeFeature(route, layer))
		for _, stopID := range route.Outbound {
			if seenStops[stopID] {
				continue
			}
			seenStops[stopID] = true
			if stop, ok := layer.StopByID(stopID); ok {
				features = append(features, stopFeature(stop))
			}
		}
	}

	return FeatureCollection{Type: "FeatureCollection", Features: features}
}

func routeFeature(route optmodel.TransitRoute, layer *transitlayer.TransitLayer) Feature {
	coords := make([][2]float64, 0, len(route.Outbound))
	for _, stopID := range route.Outbound {
		if stop, ok := layer.StopByID(stopID); ok {
			coords = append(coords, [2]float64{stop.Lon, stop.Lat})
		}
	}
	return Feature{
		Type:     "Feature",
		Geometry: Geometry{Type: "LineString", Coordinates: coords},
		Properties: map[string]any{
			"route_id":         route.ID,
			"route_short_name": route.ShortName,
			"route_long_name":  route.LongName,
			"route_desc":       route.Desc,
			"route_type":       route.Type.String(),
			"route_url":        route.URL,
		},
	}
}

func stopFeature(stop optmodel.TransitStop) Feature {
	return Feature{
		Type:     "Feature",
		Geometry: Geometry{Type: "Point", Coordinates: [2]float64{stop.Lon, stop.Lat}},
		Properties: map[string]any{
			"stop_id":                   stop.ID,
			"stop_name":                 stop.Name,
			"stop_code":                 stop.Code,
			"stop_description":          stop.Desc,
			"stop_location_type":        stop.LocationType,
			"stop_parent_station":       stop.ParentStation,
			"stop_zone_id":              stop.ZoneID,
			"stop_url":                  stop.URL,
			"stop_long":                 stop.Lon,
			"stop_lat":                  stop.Lat,
			"stop_wheel_chair_boarding": stop.WheelchairBoarding,
			"stop_transfers":            stop.Transfers,
		},
	}
}
