package gtfsimport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transit-works/route-optimizer/internal/opterr"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

func writeFeedFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"A,Stop A,0.0,0.0\n" +
			"B,Stop B,0.0,0.01\n" +
			"C,Stop C,0.0,0.02\n",
		"routes.txt": "route_id,route_short_name,route_long_name,route_type\n" +
			"r1,1,Main Line,3\n",
		"trips.txt": "trip_id,route_id,direction_id\n" +
			"t1,r1,0\n" +
			"t2,r1,1\n",
		"stop_times.txt": "trip_id,stop_id,stop_sequence\n" +
			"t1,A,1\n" +
			"t1,B,2\n" +
			"t1,C,3\n" +
			"t2,C,1\n" +
			"t2,B,2\n" +
			"t2,A,3\n",
	}
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
	}
	return dir
}

func TestParseDirectoryAndBuildTransit(t *testing.T) {
	dir := writeFeedFixture(t)

	feed, err := ParseDirectory(dir, nil)
	require.NoError(t, err)
	assert.Len(t, feed.Stops, 3)
	assert.Len(t, feed.Routes, 1)
	assert.Len(t, feed.Trips, 2)
	assert.Len(t, feed.StopTimes, 6)

	routes, stops := BuildTransit(feed)
	require.Len(t, routes, 1)
	assert.Equal(t, []string{"A", "B", "C"}, routes[0].Outbound)
	assert.Equal(t, []string{"C", "B", "A"}, routes[0].Inbound)
	assert.Equal(t, optmodel.RouteBus, routes[0].Type)

	require.Contains(t, stops, "A")
	assert.Equal(t, 0.01, stops["B"].Lon)
}

func TestParseDirectoryMissingFileReturnsMissingFileKind(t *testing.T) {
	dir := t.TempDir()
	_, err := ParseDirectory(dir, nil)
	require.Error(t, err)
	assert.Equal(t, opterr.KindMissingFile, opterr.KindOf(err))
}

func TestBuildTransitPicksLongestTripPerDirection(t *testing.T) {
	feed := &Feed{
		Routes: []rawRoute{{ID: "r1", Type: 3}},
		Trips: []rawTrip{
			{ID: "short", RouteID: "r1", Direction: 0},
			{ID: "long", RouteID: "r1", Direction: 0},
		},
		StopTimes: []rawStopTime{
			{TripID: "short", StopID: "A", Sequence: 1},
			{TripID: "short", StopID: "C", Sequence: 2},
			{TripID: "long", StopID: "A", Sequence: 1},
			{TripID: "long", StopID: "B", Sequence: 2},
			{TripID: "long", StopID: "C", Sequence: 3},
		},
	}
	routes, _ := BuildTransit(feed)
	require.Len(t, routes, 1)
	assert.Equal(t, []string{"A", "B", "C"}, routes[0].Outbound)
}
