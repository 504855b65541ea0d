package selectors

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"geoview/internal/model"
	"geoview/internal/state"
)

func fixture() state.AppState {
	station := model.NewPlace("st1", orb.Point{8, 54}, map[string]any{"label": "Helgoland", "color": "blue"})
	ds := &model.Dataset{
		ID: "ds",
		Variables: []*model.Variable{
			{Name: "chl", Units: "mg/m^3", TimeChunkSize: 8, ColorBarName: "jet", ColorBarMin: 0, ColorBarMax: 20},
			{Name: "raw"},
		},
		Dimensions: []*model.Dimension{{Name: "time", Labels: []string{
			"2020-01-01T00:00:00Z", "2020-01-11T00:00:00Z", "2020-01-21T00:00:00Z",
		}}},
		PlaceGroups: []*model.PlaceGroup{{ID: "stations", Title: "Stations", Features: []*model.Place{station}}},
	}
	s := state.New([]model.ServerConfig{{ID: "local", URL: "http://localhost:8080"}}, "", state.DefaultSettings())
	s = state.Reduce(s, state.UpdateDatasets{Datasets: []*model.Dataset{ds}})
	s = state.Reduce(s, state.AddDrawnUserPlace{Place: model.NewPlace("u1", orb.Point{1, 1}, nil)})
	return s
}

func TestSelectedServer(t *testing.T) {
	s := fixture()
	srv, err := SelectedServer(s)
	require.NoError(t, err)
	require.Equal(t, "local", srv.ID)

	s.Control.SelectedServerID = "other"
	_, err = SelectedServer(s)
	require.ErrorIs(t, err, ErrServerNotFound)

	s.Data.UserServers = nil
	_, err = SelectedServer(s)
	require.ErrorIs(t, err, ErrNoServers)
}

func TestSelectedDatasetAndVariable(t *testing.T) {
	s := fixture()
	require.Equal(t, "ds", SelectedDataset(s).ID)
	require.Equal(t, "chl", SelectedVariable(s).Name)
	require.Equal(t, "mg/m^3", SelectedVariableUnits(s))
	require.Len(t, SelectedDatasetTimeLabels(s), 3)

	s = state.Reduce(s, state.SelectVariable{VariableName: "raw"})
	require.Equal(t, DefaultUnits, SelectedVariableUnits(s))
	require.Equal(t, DefaultColorBarName, SelectedVariableColorBarName(s))
	lo, hi := SelectedVariableColorBarMinMax(s)
	require.Equal(t, 0.0, lo)
	require.Equal(t, 1.0, hi)
	require.Equal(t, DefaultOpacity, SelectedVariableOpacity(s))

	s = state.Reduce(s, state.SelectVariable{VariableName: "gone"})
	require.Nil(t, SelectedVariable(s))
	require.Equal(t, DefaultUnits, SelectedVariableUnits(s))
}

func TestPlaceGroupsAndSelection(t *testing.T) {
	s := fixture()
	all := PlaceGroups(s)
	require.Len(t, all, 2)
	require.Equal(t, "stations", all[0].ID)
	require.Equal(t, model.UserDrawnPlaceGroupID, all[1].ID)

	require.Equal(t, "u1", SelectedPlace(s).ID)
	require.Equal(t, state.DefaultUserPlaceGroupTitle, SelectedPlaceGroupsTitle(s))

	s = state.Reduce(s, state.SelectPlace{PlaceID: "st1"})
	require.Nil(t, SelectedPlace(s), "station group is not selected yet")
	require.True(t, PlaceExists(s, "st1"))

	s = state.Reduce(s, state.SelectPlaceGroups{PlaceGroupIDs: []string{"stations", model.UserDrawnPlaceGroupID}})
	require.Equal(t, "st1", SelectedPlace(s).ID)
	require.Len(t, SelectedPlaces(s), 2)
	require.Equal(t, "Stations, "+state.DefaultUserPlaceGroupTitle, SelectedPlaceGroupsTitle(s))
	require.False(t, PlaceExists(s, "nope"))
}

func TestSelectedTimeChunkSize(t *testing.T) {
	s := fixture()
	s.Control.TimeChunkSize = 20
	require.Equal(t, 24, SelectedTimeChunkSize(s))
	s.Control.TimeChunkSize = 16
	require.Equal(t, 16, SelectedTimeChunkSize(s))

	s = state.Reduce(s, state.SelectVariable{VariableName: "raw"})
	require.Equal(t, 16, SelectedTimeChunkSize(s))
}

func TestCanAddTimeSeries(t *testing.T) {
	s := fixture()
	require.True(t, CanAddTimeSeries(s))
	s = state.Reduce(s, state.SelectPlace{PlaceID: ""})
	require.False(t, CanAddTimeSeries(s))
}

func TestTimeSeriesPlaceInfos(t *testing.T) {
	s := fixture()
	s.Data.TimeSeriesGroups = []*model.TimeSeriesGroup{{ID: "g", VariableUnits: "mg/m^3", TimeSeriesArray: []*model.TimeSeries{
		{Source: model.TimeSeriesSource{DatasetID: "ds", VariableName: "chl", PlaceID: "st1"}},
		{Source: model.TimeSeriesSource{DatasetID: "ds", VariableName: "chl", PlaceID: "u1"}},
		{Source: model.TimeSeriesSource{DatasetID: "ds", VariableName: "chl", PlaceID: "missing"}},
	}}}
	infos := TimeSeriesPlaceInfos(s)
	require.Len(t, infos, 2)
	require.Equal(t, "Helgoland", infos["st1"].Label)
	require.Equal(t, "blue", infos["st1"].Color)
	require.Equal(t, "u1", infos["u1"].Label)
	require.Equal(t, "red", infos["u1"].Color)
}

func TestSelectedTimeIndex(t *testing.T) {
	s := fixture()
	require.Equal(t, 2, SelectedTimeIndex(s))

	s = state.Reduce(s, state.SelectTime{Time: "2020-01-09T12:00:00Z"})
	require.Equal(t, 1, SelectedTimeIndex(s))

	s = state.Reduce(s, state.SelectTime{Time: "not a time"})
	require.Equal(t, -1, SelectedTimeIndex(s))
}
