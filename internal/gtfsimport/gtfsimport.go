// Package gtfsimport reads a GTFS feed directory and builds the subset of
// records the optimizer's transit layer needs: stops (id, lat, lon), routes
// (id, type), and per-route stop sequences derived from trips/stop_times.
// Everything else in a GTFS feed (calendars, fares, shapes, ...) is ignored.
package gtfsimport

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/transit-works/route-optimizer/internal/opterr"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

type rawStop struct {
	ID                 string
	Name               string
	Code               string
	Desc               string
	Lat, Lon           float64
	LocationType       int
	ParentStation      string
	ZoneID             string
	URL                string
	WheelchairBoarding int
}

type rawRoute struct {
	ID        string
	ShortName string
	LongName  string
	Desc      string
	Type      int
	URL       string
}

type rawTrip struct {
	ID        string
	RouteID   string
	Direction int
}

type rawStopTime struct {
	TripID   string
	StopID   string
	Sequence int
}

// Feed holds the raw parsed rows, before assembly into optmodel types.
type Feed struct {
	Stops     []rawStop
	Routes    []rawRoute
	Trips     []rawTrip
	StopTimes []rawStopTime
}

// ParseDirectory reads stops.txt, routes.txt, trips.txt, and stop_times.txt
// from dir. All four are required.
func ParseDirectory(dir string, log *slog.Logger) (*Feed, error) {
	feed := &Feed{}

	stops, err := parseStops(filepath.Join(dir, "stops.txt"), log)
	if err != nil {
		return nil, err
	}
	feed.Stops = stops

	routes, err := parseRoutes(filepath.Join(dir, "routes.txt"), log)
	if err != nil {
		return nil, err
	}
	feed.Routes = routes

	trips, err := parseTrips(filepath.Join(dir, "trips.txt"), log)
	if err != nil {
		return nil, err
	}
	feed.Trips = trips

	stopTimes, err := parseStopTimes(filepath.Join(dir, "stop_times.txt"), log)
	if err != nil {
		return nil, err
	}
	feed.StopTimes = stopTimes

	return feed, nil
}

// BuildTransit assembles Feed into TransitRoutes (outbound from direction_id
// 0 trips, inbound from direction_id 1) and the stop catalogue. Each route
// picks the stop sequence of its longest trip per direction, matching the
// common GTFS convention that the longest trip is the canonical pattern.
func BuildTransit(feed *Feed) ([]optmodel.TransitRoute, map[string]optmodel.TransitStop) {
	stopCatalogue := make(map[string]optmodel.TransitStop, len(feed.Stops))
	for _, s := range feed.Stops {
		stopCatalogue[s.ID] = optmodel.TransitStop{
			ID: s.ID, Lon: s.Lon, Lat: s.Lat,
			Code: s.Code, Name: s.Name, Desc: s.Desc,
			LocationType: s.LocationType, ParentStation: s.ParentStation,
			ZoneID: s.ZoneID, URL: s.URL, WheelchairBoarding: s.WheelchairBoarding,
		}
	}

	stopsByTrip := make(map[string][]rawStopTime)
	for _, st := range feed.StopTimes {
		stopsByTrip[st.TripID] = append(stopsByTrip[st.TripID], st)
	}
	for tripID, sts := range stopsByTrip {
		sort.Slice(sts, func(i, j int) bool { return sts[i].Sequence < sts[j].Sequence })
		stopsByTrip[tripID] = sts
	}

	tripsByRouteDir := make(map[string]map[int][]rawTrip)
	for _, t := range feed.Trips {
		if tripsByRouteDir[t.RouteID] == nil {
			tripsByRouteDir[t.RouteID] = make(map[int][]rawTrip)
		}
		tripsByRouteDir[t.RouteID][t.Direction] = append(tripsByRouteDir[t.RouteID][t.Direction], t)
	}

	var routes []optmodel.TransitRoute
	for _, r := range feed.Routes {
		route := optmodel.TransitRoute{
			ID: r.ID, Type: mapRouteType(r.Type),
			ShortName: r.ShortName, LongName: r.LongName, Desc: r.Desc, URL: r.URL,
			Outbound: longestSequence(tripsByRouteDir[r.ID][0], stopsByTrip),
			Inbound:  longestSequence(tripsByRouteDir[r.ID][1], stopsByTrip),
		}
		routes = append(routes, route)
	}
	return routes, stopCatalogue
}

func longestSequence(trips []rawTrip, stopsByTrip map[string][]rawStopTime) []string {
	var best []rawStopTime
	for _, t := range trips {
		seq := stopsByTrip[t.ID]
		if len(seq) > len(best) {
			best = seq
		}
	}
	out := make([]string, 0, len(best))
	for _, st := range best {
		out = append(out, st.StopID)
	}
	return out
}

func mapRouteType(t int) optmodel.RouteType {
	switch t {
	case 0:
		return optmodel.RouteTram
	case 1:
		return optmodel.RouteSubway
	case 2:
		return optmodel.RouteRail
	case 3:
		return optmodel.RouteBus
	case 4:
		return optmodel.RouteFerry
	case 5:
		return optmodel.RouteCableTram
	case 6:
		return optmodel.RouteAerialLift
	case 7:
		return optmodel.RouteFunicular
	case 11:
		return optmodel.RouteTrolleybus
	case 12:
		return optmodel.RouteMonorail
	default:
		return optmodel.RouteBus
	}
}

func parseStops(path string, log *slog.Logger) ([]rawStop, error) {
	records, colMap, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var stops []rawStop
	for _, record := range records {
		id := getField(record, colMap, "stop_id")
		latStr := getField(record, colMap, "stop_lat")
		lonStr := getField(record, colMap, "stop_lon")
		if id == "" || latStr == "" || lonStr == "" {
			logWarn(log, "skipping stop with missing required fields", "stop_id", id)
			continue
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			logWarn(log, "invalid stop latitude", "stop_id", id)
			continue
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			logWarn(log, "invalid stop longitude", "stop_id", id)
			continue
		}
		locType, _ := strconv.Atoi(getField(record, colMap, "location_type"))
		wheelchair, _ := strconv.Atoi(getField(record, colMap, "wheelchair_boarding"))
		stops = append(stops, rawStop{
			ID: id, Name: getField(record, colMap, "stop_name"),
			Code: getField(record, colMap, "stop_code"), Desc: getField(record, colMap, "stop_desc"),
			Lat: lat, Lon: lon, LocationType: locType,
			ParentStation: getField(record, colMap, "parent_station"),
			ZoneID:        getField(record, colMap, "zone_id"),
			URL:           getField(record, colMap, "stop_url"),
			WheelchairBoarding: wheelchair,
		})
	}
	return stops, nil
}

func parseRoutes(path string, log *slog.Logger) ([]rawRoute, error) {
	records, colMap, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var routes []rawRoute
	for _, record := range records {
		id := getField(record, colMap, "route_id")
		if id == "" {
			continue
		}
		routeType, _ := strconv.Atoi(getField(record, colMap, "route_type"))
		routes = append(routes, rawRoute{
			ID: id, ShortName: getField(record, colMap, "route_short_name"),
			LongName: getField(record, colMap, "route_long_name"),
			Desc:     getField(record, colMap, "route_desc"),
			Type:     routeType, URL: getField(record, colMap, "route_url"),
		})
	}
	return routes, nil
}

func parseTrips(path string, log *slog.Logger) ([]rawTrip, error) {
	records, colMap, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var trips []rawTrip
	for _, record := range records {
		id := getField(record, colMap, "trip_id")
		routeID := getField(record, colMap, "route_id")
		if id == "" || routeID == "" {
			continue
		}
		direction, _ := strconv.Atoi(getField(record, colMap, "direction_id"))
		trips = append(trips, rawTrip{ID: id, RouteID: routeID, Direction: direction})
	}
	return trips, nil
}

func parseStopTimes(path string, log *slog.Logger) ([]rawStopTime, error) {
	records, colMap, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var stopTimes []rawStopTime
	for _, record := range records {
		tripID := getField(record, colMap, "trip_id")
		stopID := getField(record, colMap, "stop_id")
		seqStr := getField(record, colMap, "stop_sequence")
		if tripID == "" || stopID == "" || seqStr == "" {
			continue
		}
		seq, err := strconv.Atoi(seqStr)
		if err != nil {
			logWarn(log, "invalid stop_sequence", "trip_id", tripID)
			continue
		}
		stopTimes = append(stopTimes, rawStopTime{TripID: tripID, StopID: stopID, Sequence: seq})
	}
	return stopTimes, nil
}

func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, opterr.Wrap(opterr.KindMissingFile, "open "+filepath.Base(path), err)
		}
		return nil, nil, opterr.Wrap(opterr.KindIO, "open "+filepath.Base(path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, nil, opterr.CSVParse(filepath.Base(path), "", "read header", err)
	}
	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.TrimSpace(col)] = i
	}

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, opterr.CSVParse(filepath.Base(path), strings.Join(record, ","), "malformed row", err)
		}
		records = append(records, record)
	}
	return records, colMap, nil
}

func getField(record []string, colMap map[string]int, field string) string {
	if idx, ok := colMap[field]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func logWarn(log *slog.Logger, msg string, args ...any) {
	if log != nil {
		log.Warn(msg, args...)
	}
}
