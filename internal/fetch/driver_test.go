package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"geoview/internal/model"
	"geoview/internal/remote"
	"geoview/internal/timeseries"
)

type fakeSource struct {
	mu       sync.Mutex
	requests []remote.TimeSeriesRequest
	respond  func(call int, req remote.TimeSeriesRequest) ([]model.TimeSeriesPoint, error)
}

func (f *fakeSource) TimeSeriesForGeometry(_ context.Context, req remote.TimeSeriesRequest) ([]model.TimeSeriesPoint, error) {
	f.mu.Lock()
	call := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(call, req)
}

type merge struct {
	ts         *model.TimeSeries
	updateMode timeseries.UpdateMode
	dataMode   timeseries.DataMode
}

type fakeSink struct {
	groups  []*model.TimeSeriesGroup
	merges  []merge
	noData  int
	exists  func(call int) bool
	checked int
}

func (f *fakeSink) PlaceExists(string) bool {
	f.checked++
	if f.exists == nil {
		return true
	}
	return f.exists(f.checked)
}

func (f *fakeSink) MergeTimeSeries(ts *model.TimeSeries, u timeseries.UpdateMode, d timeseries.DataMode) bool {
	if !f.PlaceExists(ts.Source.PlaceID) {
		return false
	}
	f.merges = append(f.merges, merge{ts, u, d})
	f.groups = timeseries.Merge(f.groups, ts, u, d)
	return true
}

func (f *fakeSink) NoData(Selection) { f.noData++ }

func labels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("2020-01-%02d", i+1)
	}
	return out
}

func selection(n int) Selection {
	return Selection{
		DatasetID:  "ds",
		TimeLabels: labels(n),
		Variable:   &model.Variable{Name: "chl", Units: "mg/m^3"},
		Place:      model.NewPlace("p1", orb.Point{10, 50}, nil),
	}
}

// pointsFor：每个请求按边界返回对应的时间标签
func pointsFor(all []string) func(int, remote.TimeSeriesRequest) ([]model.TimeSeriesPoint, error) {
	return func(_ int, req remote.TimeSeriesRequest) ([]model.TimeSeriesPoint, error) {
		var out []model.TimeSeriesPoint
		inRange := req.StartDate == ""
		for _, l := range all {
			if l == req.StartDate {
				inRange = true
			}
			if inRange {
				out = append(out, model.TimeSeriesPoint{Time: l, ValidCount: 1, TotalCount: 1})
			}
			if l == req.EndDate {
				break
			}
		}
		return out, nil
	}
}

func TestRunTenLabelsChunkFour(t *testing.T) {
	sel := selection(10)
	src := &fakeSource{respond: pointsFor(sel.TimeLabels)}
	sink := &fakeSink{}

	err := NewDriver(src, sink).Run(context.Background(), sel, Options{TimeChunkSize: 4, UpdateMode: timeseries.Add})
	require.NoError(t, err)

	require.Len(t, src.requests, 3)
	require.Equal(t, sel.TimeLabels[6], src.requests[0].StartDate)
	require.Equal(t, sel.TimeLabels[9], src.requests[0].EndDate)
	require.Equal(t, sel.TimeLabels[2], src.requests[1].StartDate)
	require.Equal(t, sel.TimeLabels[5], src.requests[1].EndDate)
	require.Equal(t, "", src.requests[2].StartDate)
	require.Equal(t, sel.TimeLabels[1], src.requests[2].EndDate)

	require.Len(t, sink.merges, 3)
	require.Equal(t, []timeseries.DataMode{timeseries.New, timeseries.Append, timeseries.Append},
		[]timeseries.DataMode{sink.merges[0].dataMode, sink.merges[1].dataMode, sink.merges[2].dataMode})
	require.InDelta(t, 0.4, sink.merges[0].ts.DataProgress, 1e-9)
	require.InDelta(t, 0.8, sink.merges[1].ts.DataProgress, 1e-9)
	require.Equal(t, 1.0, sink.merges[2].ts.DataProgress)

	got := sink.groups[0].TimeSeriesArray[0]
	require.Len(t, got.Data, 10)
	require.Equal(t, 1.0, got.DataProgress)
	require.Equal(t, sel.TimeLabels[0], got.Data[0].Time)
	require.Equal(t, sel.TimeLabels[9], got.Data[9].Time)
}

func TestRunNonPositiveChunkFetchesAllAtOnce(t *testing.T) {
	for _, chunk := range []int{0, -3} {
		sel := selection(7)
		src := &fakeSource{respond: pointsFor(sel.TimeLabels)}
		sink := &fakeSink{}

		require.NoError(t, NewDriver(src, sink).Run(context.Background(), sel, Options{TimeChunkSize: chunk}))

		require.Len(t, src.requests, 1)
		require.Equal(t, sel.TimeLabels[0], src.requests[0].StartDate)
		require.Len(t, sink.merges, 1)
		require.Equal(t, timeseries.New, sink.merges[0].dataMode)
		require.Equal(t, 1.0, sink.merges[0].ts.DataProgress)
	}
}

func TestRunFirstChunkEmptyEmitsNoData(t *testing.T) {
	src := &fakeSource{respond: func(int, remote.TimeSeriesRequest) ([]model.TimeSeriesPoint, error) { return nil, nil }}
	sink := &fakeSink{}

	require.NoError(t, NewDriver(src, sink).Run(context.Background(), selection(10), Options{TimeChunkSize: 4}))

	require.Equal(t, 1, sink.noData)
	require.Empty(t, sink.merges)
	require.Len(t, src.requests, 1)
}

func TestRunLaterEmptyChunkStillMerges(t *testing.T) {
	sel := selection(6)
	src := &fakeSource{respond: func(call int, req remote.TimeSeriesRequest) ([]model.TimeSeriesPoint, error) {
		if call == 0 {
			return pointsFor(sel.TimeLabels)(call, req)
		}
		return nil, nil
	}}
	sink := &fakeSink{}

	require.NoError(t, NewDriver(src, sink).Run(context.Background(), sel, Options{TimeChunkSize: 3}))
	require.Zero(t, sink.noData)
	require.Len(t, sink.merges, 2)
	require.Equal(t, 1.0, sink.groups[0].TimeSeriesArray[0].DataProgress)
}

func TestRunMissingInputsIsNoop(t *testing.T) {
	src := &fakeSource{respond: pointsFor(nil)}
	sink := &fakeSink{}
	d := NewDriver(src, sink)

	cases := []func(*Selection){
		func(s *Selection) { s.DatasetID = "" },
		func(s *Selection) { s.Variable = nil },
		func(s *Selection) { s.Place = nil },
		func(s *Selection) { s.TimeLabels = nil },
	}
	for _, mutate := range cases {
		sel := selection(5)
		mutate(&sel)
		require.NoError(t, d.Run(context.Background(), sel, Options{TimeChunkSize: 2}))
	}
	require.Empty(t, src.requests)
	require.Empty(t, sink.merges)
}

func TestRunStopsWhenPlaceRemoved(t *testing.T) {
	sel := selection(10)
	src := &fakeSource{respond: pointsFor(sel.TimeLabels)}
	// checks: merge #1, request #2, merge #2 (place gone), ...
	sink := &fakeSink{exists: func(call int) bool { return call < 3 }}

	require.NoError(t, NewDriver(src, sink).Run(context.Background(), sel, Options{TimeChunkSize: 4}))

	require.Len(t, src.requests, 2)
	require.Len(t, sink.merges, 1)
}

func TestRunDropsChunkWhenMergeRefused(t *testing.T) {
	sel := selection(10)
	src := &fakeSource{respond: pointsFor(sel.TimeLabels)}
	sink := &fakeSink{exists: func(int) bool { return false }}

	require.NoError(t, NewDriver(src, sink).Run(context.Background(), sel, Options{TimeChunkSize: 4}))

	require.Len(t, src.requests, 1)
	require.Empty(t, sink.merges)
	require.Empty(t, sink.groups)
	require.Zero(t, sink.noData)
}

func TestRunErrorAbortsAndKeepsMergedData(t *testing.T) {
	sel := selection(10)
	boom := errors.New("connection reset")
	src := &fakeSource{respond: func(call int, req remote.TimeSeriesRequest) ([]model.TimeSeriesPoint, error) {
		if call == 1 {
			return nil, boom
		}
		return pointsFor(sel.TimeLabels)(call, req)
	}}
	sink := &fakeSink{}

	err := NewDriver(src, sink).Run(context.Background(), sel, Options{TimeChunkSize: 4})
	require.ErrorIs(t, err, boom)
	require.Len(t, src.requests, 2)
	require.Len(t, sink.merges, 1)
	require.Len(t, sink.groups[0].TimeSeriesArray[0].Data, 4)
}

func TestRunPassesRequestOptions(t *testing.T) {
	sel := selection(3)
	src := &fakeSource{respond: pointsFor(sel.TimeLabels)}
	sink := &fakeSink{}

	opts := Options{UseMedian: true, IncludeStdev: true, AccessToken: "tok", UpdateMode: timeseries.Replace}
	require.NoError(t, NewDriver(src, sink).Run(context.Background(), sel, opts))

	req := src.requests[0]
	require.True(t, req.UseMedian)
	require.True(t, req.IncludeStdev)
	require.Equal(t, "tok", req.AccessToken)
	require.Equal(t, orb.Point{10, 50}, req.Geometry)
	require.Equal(t, timeseries.Replace, sink.merges[0].updateMode)
	require.Equal(t, "mg/m^3", sink.merges[0].ts.Source.VariableUnits)
}
