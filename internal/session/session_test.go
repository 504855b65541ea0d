package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"geoview/internal/cache"
	"geoview/internal/fetch"
	"geoview/internal/geolocate"
	"geoview/internal/model"
	"geoview/internal/selectors"
	"geoview/internal/servers"
	"geoview/internal/state"
	"geoview/internal/timeseries"
	"geoview/internal/userplace"
)

type fakeServer struct {
	mu         sync.Mutex
	labels     []string
	empty      bool
	fail       bool
	updateTime string
	requests   [][2]string
	srv        *httptest.Server
}

func newFakeServer(t *testing.T, n int) *fakeServer {
	t.Helper()
	fs := &fakeServer{updateTime: "2024-01-01T00:00:00Z"}
	for i := 0; i < n; i++ {
		fs.labels = append(fs.labels, fmt.Sprintf("2020-01-%02dT00:00:00Z", i+1))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.ServerInfo{Name: "fake", Version: "1.0"})
	})
	mux.HandleFunc("GET /datasets", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		ds := &model.Dataset{
			ID:         "ds1",
			Title:      "Demo",
			Variables:  []*model.Variable{{ID: "ds1.sst", Name: "sst", Units: "K"}},
			Dimensions: []*model.Dimension{{Name: "time", Size: len(fs.labels), Labels: fs.labels, Coordinates: fs.labels}},
		}
		json.NewEncoder(w).Encode(map[string]any{"datasets": []*model.Dataset{ds}})
	})
	mux.HandleFunc("GET /colorbars", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.ColorBars{Groups: []model.ColorBarGroup{{Title: "Seq", Names: []string{"viridis"}}}})
	})
	mux.HandleFunc("GET /maintenance/update", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"updateTime": fs.updateTime})
	})
	mux.HandleFunc("POST /maintenance/update", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /timeseries/{ds}/{var}", func(w http.ResponseWriter, r *http.Request) {
		start, end := r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate")
		fs.mu.Lock()
		fs.requests = append(fs.requests, [2]string{start, end})
		empty, fail := fs.empty, fs.fail
		fs.mu.Unlock()
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var pts []model.TimeSeriesPoint
		if !empty {
			fs.mu.Lock()
			labels := fs.labels
			fs.mu.Unlock()
			lo := 0
			if start != "" {
				lo = slices.Index(labels, start)
			}
			hi := slices.Index(labels, end)
			for i := lo; i <= hi; i++ {
				v := float64(i)
				pts = append(pts, model.TimeSeriesPoint{Time: labels[i], Average: &v, ValidCount: 1, TotalCount: 1})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"result": pts})
	})
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) chunks() [][2]string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return slices.Clone(fs.requests)
}

type fakeStore struct {
	mu       sync.Mutex
	servers  []model.ServerConfig
	settings *state.Settings
	places   []*model.PlaceGroup
}

func (f *fakeStore) SaveServers(_ context.Context, s []model.ServerConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers = s
	return nil
}

func (f *fakeStore) SaveSettings(_ context.Context, _ string, s state.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = &s
	return nil
}

func (f *fakeStore) SaveUserPlaceGroups(_ context.Context, g []*model.PlaceGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.places = g
	return nil
}

type fakeLocator struct{ place *model.Place }

func (f fakeLocator) Locate(string) (*model.Place, error) {
	if f.place == nil {
		return nil, geolocate.ErrNotFound
	}
	return f.place, nil
}

func newSession(t *testing.T, fs *fakeServer, cfg Config) *Session {
	t.Helper()
	if cfg.Servers == nil {
		cfg.Servers = []model.ServerConfig{{ID: "local", Name: "Local", URL: fs.srv.URL}}
	}
	if cfg.Settings.Locale == "" {
		cfg.Settings = state.DefaultSettings()
		cfg.Settings.TimeChunkSize = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := New(ctx, cfg, servers.NewManager(fs.srv.Client(), cache.Nop{}, 0))
	require.NoError(t, s.SyncWithServer(context.Background()))
	return s
}

func messagesOf(s *Session, typ state.MessageType) []string {
	var out []string
	for _, m := range s.State().Messages {
		if m.Type == typ {
			out = append(out, m.Text)
		}
	}
	return out
}

func TestSyncSelectsFirstDataset(t *testing.T) {
	fs := newFakeServer(t, 10)
	s := newSession(t, fs, Config{})
	st := s.State()
	require.Equal(t, "fake", st.Data.ServerInfo.Name)
	require.Len(t, st.Data.Datasets, 1)
	require.Equal(t, "ds1", st.Control.SelectedDatasetID)
	require.Equal(t, "sst", st.Control.SelectedVariableName)
	require.Equal(t, fs.labels[9], st.Control.SelectedTime)
	require.NotNil(t, st.Data.ColorBars)
	require.Empty(t, st.Control.Activities)
}

func TestAddUserPlaceFetchesBackwardInChunks(t *testing.T) {
	fs := newFakeServer(t, 10)
	s := newSession(t, fs, Config{})

	p, err := s.AddUserPlace(context.Background(), orb.Point{8, 54}, nil)
	require.NoError(t, err)
	s.Wait()

	require.Equal(t, [][2]string{
		{fs.labels[6], fs.labels[9]},
		{fs.labels[2], fs.labels[5]},
		{"", fs.labels[1]},
	}, fs.chunks())

	st := s.State()
	require.Len(t, st.Data.TimeSeriesGroups, 1)
	g := st.Data.TimeSeriesGroups[0]
	require.Equal(t, "K", g.VariableUnits)
	require.Len(t, g.TimeSeriesArray, 1)
	ts := g.TimeSeriesArray[0]
	require.Equal(t, p.ID, ts.Source.PlaceID)
	require.Equal(t, 1.0, ts.DataProgress)
	require.Len(t, ts.Data, 10)
	for i, pt := range ts.Data {
		require.Equal(t, fs.labels[i], pt.Time)
	}
	require.Empty(t, st.Control.Activities)
	require.Empty(t, messagesOf(s, state.MessageError))
}

func TestNoDataPostsNoticeWithoutMerge(t *testing.T) {
	fs := newFakeServer(t, 10)
	fs.empty = true
	s := newSession(t, fs, Config{})

	_, err := s.AddUserPlace(context.Background(), orb.Point{1, 2}, nil)
	require.NoError(t, err)
	s.Wait()

	require.Len(t, fs.chunks(), 1)
	require.Empty(t, s.State().Data.TimeSeriesGroups)
	require.Equal(t, []string{"No data found here"}, messagesOf(s, state.MessageInfo))
}

func TestFetchFailurePostsError(t *testing.T) {
	fs := newFakeServer(t, 10)
	fs.fail = true
	s := newSession(t, fs, Config{})

	_, err := s.AddUserPlace(context.Background(), orb.Point{1, 2}, nil)
	require.NoError(t, err)
	s.Wait()

	require.Empty(t, s.State().Data.TimeSeriesGroups)
	require.Len(t, messagesOf(s, state.MessageError), 1)
	require.Empty(t, s.State().Control.Activities)
}

func TestAutoShowOff(t *testing.T) {
	fs := newFakeServer(t, 10)
	settings := state.DefaultSettings()
	settings.AutoShowTimeSeries = false
	s := newSession(t, fs, Config{Settings: settings})

	p, err := s.AddUserPlace(context.Background(), orb.Point{1, 2}, map[string]any{"label": "Home"})
	require.NoError(t, err)
	s.Wait()
	require.Empty(t, fs.chunks())
	require.Equal(t, p.ID, s.State().Control.SelectedPlaceID)
	require.Equal(t, "Home", selectors.SelectedPlace(s.State()).Label())
}

func TestRemovePlaceCascades(t *testing.T) {
	fs := newFakeServer(t, 10)
	store := &fakeStore{}
	s := newSession(t, fs, Config{Store: store})

	p, err := s.AddUserPlace(context.Background(), orb.Point{1, 2}, nil)
	require.NoError(t, err)
	s.Wait()
	require.Len(t, s.State().Data.TimeSeriesGroups, 1)

	s.RemoveUserPlace(context.Background(), model.UserDrawnPlaceGroupID, p.ID)
	st := s.State()
	require.Empty(t, st.Data.TimeSeriesGroups)
	require.Empty(t, st.Control.SelectedPlaceID)
	require.False(t, s.PlaceExists(p.ID))
	require.Empty(t, store.places)
}

// removingSink：在存活校验与合并之间删除地点，等同一个并发的删除请求
type removingSink struct {
	*Session
	groupID string
	once    sync.Once
}

func (r *removingSink) MergeTimeSeries(ts *model.TimeSeries, u timeseries.UpdateMode, d timeseries.DataMode) bool {
	if r.Session.PlaceExists(ts.Source.PlaceID) {
		r.once.Do(func() { r.RemoveUserPlace(context.Background(), r.groupID, ts.Source.PlaceID) })
	}
	return r.Session.MergeTimeSeries(ts, u, d)
}

func TestPlaceRemovedBeforeMergeLeavesNoSeries(t *testing.T) {
	fs := newFakeServer(t, 10)
	settings := state.DefaultSettings()
	settings.AutoShowTimeSeries = false
	s := newSession(t, fs, Config{Settings: settings})

	p, err := s.AddUserPlace(context.Background(), orb.Point{1, 2}, nil)
	require.NoError(t, err)
	c, err := s.client()
	require.NoError(t, err)
	st := s.State()
	sel := fetch.Selection{
		DatasetID:  selectors.SelectedDataset(st).ID,
		TimeLabels: selectors.SelectedDatasetTimeLabels(st),
		Variable:   selectors.SelectedVariable(st),
		Place:      p,
	}

	sink := &removingSink{Session: s, groupID: model.UserDrawnPlaceGroupID}
	require.NoError(t, fetch.NewDriver(c, sink).Run(context.Background(), sel, fetch.Options{TimeChunkSize: 4}))

	require.Len(t, fs.chunks(), 1)
	require.False(t, s.PlaceExists(p.ID))
	require.Empty(t, s.State().Data.TimeSeriesGroups)
}

func TestImportWKT(t *testing.T) {
	fs := newFakeServer(t, 10)
	store := &fakeStore{}
	s := newSession(t, fs, Config{Store: store})

	n, err := s.AddUserPlacesFromText(context.Background(), Import{Format: FormatWKT, Text: "POINT(1 2)\n"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	s.Wait()

	st := s.State()
	require.Len(t, st.Data.UserPlaceGroups, 1)
	pg := st.Data.UserPlaceGroups[0]
	require.Contains(t, st.Control.SelectedPlaceGroupIDs, pg.ID)
	require.Equal(t, pg.Features[0].ID, st.Control.SelectedPlaceID)
	require.Len(t, st.Data.TimeSeriesGroups, 1)
	require.Equal(t, []string{"Imported 1 place(s)"}, messagesOf(s, state.MessageInfo))
	require.Len(t, store.places, 1)
}

func TestImportInvalidOpensDialog(t *testing.T) {
	fs := newFakeServer(t, 10)
	s := newSession(t, fs, Config{})

	n, err := s.AddUserPlacesFromText(context.Background(), Import{Format: FormatGeoJSON, Text: "{not json"})
	require.ErrorIs(t, err, userplace.ErrFormat)
	require.Zero(t, n)
	st := s.State()
	require.Empty(t, st.Data.UserPlaceGroups)
	require.Contains(t, st.Control.OpenDialogs, ImportDialogID)
	require.Len(t, messagesOf(s, state.MessageError), 1)

	_, err = s.AddUserPlacesFromText(context.Background(), Import{Format: "kml", Text: "x"})
	require.ErrorIs(t, err, userplace.ErrFormat)
}

func TestImportEmptyWarns(t *testing.T) {
	fs := newFakeServer(t, 10)
	s := newSession(t, fs, Config{})

	n, err := s.AddUserPlacesFromText(context.Background(), Import{Format: FormatCSV, Text: "   "})
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, []string{"No places imported"}, messagesOf(s, state.MessageWarning))
}

func TestLocatePlace(t *testing.T) {
	fs := newFakeServer(t, 10)
	s := newSession(t, fs, Config{})
	_, err := s.LocatePlace(context.Background(), "1.2.3.4")
	require.ErrorIs(t, err, geolocate.ErrDisabled)

	want := model.NewPlace("geo-1", orb.Point{13.4, 52.5}, map[string]any{"label": "Berlin"})
	s = newSession(t, fs, Config{Locator: fakeLocator{place: want}})
	got, err := s.LocatePlace(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.Same(t, want, got)
	s.Wait()
	require.Equal(t, "geo-1", s.State().Control.SelectedPlaceID)
	require.Len(t, s.State().Data.TimeSeriesGroups, 1)

	s = newSession(t, fs, Config{Locator: fakeLocator{}})
	_, err = s.LocatePlace(context.Background(), "10.0.0.1")
	require.ErrorIs(t, err, geolocate.ErrNotFound)
}

func TestConfigureServers(t *testing.T) {
	fs := newFakeServer(t, 10)
	other := newFakeServer(t, 3)
	store := &fakeStore{}
	s := newSession(t, fs, Config{Store: store})

	_, err := s.AddUserPlace(context.Background(), orb.Point{1, 2}, nil)
	require.NoError(t, err)
	s.Wait()
	require.Len(t, s.State().Data.TimeSeriesGroups, 1)

	list := []model.ServerConfig{
		{ID: "local", Name: "Local", URL: fs.srv.URL},
		{ID: "other", Name: "Other", URL: other.srv.URL},
	}
	require.NoError(t, s.ConfigureServers(context.Background(), list, "local"))
	require.Len(t, s.State().Data.TimeSeriesGroups, 1)
	require.Equal(t, list, store.servers)

	require.NoError(t, s.ConfigureServers(context.Background(), list, "other"))
	st := s.State()
	require.Empty(t, st.Data.TimeSeriesGroups)
	require.Equal(t, "other", st.Control.SelectedServerID)
	require.Equal(t, other.labels, selectors.SelectedDatasetTimeLabels(st))
	require.NotNil(t, store.settings)
}

func TestSelectedServerErrors(t *testing.T) {
	fs := newFakeServer(t, 10)
	ctx := context.Background()
	s := New(ctx, Config{Settings: state.DefaultSettings()}, servers.NewManager(fs.srv.Client(), cache.Nop{}, 0))
	require.ErrorIs(t, s.SyncWithServer(ctx), selectors.ErrNoServers)

	s = New(ctx, Config{
		Servers:          []model.ServerConfig{{ID: "a", URL: fs.srv.URL}},
		SelectedServerID: "b",
		Settings:         state.DefaultSettings(),
	}, servers.NewManager(fs.srv.Client(), cache.Nop{}, 0))
	_, err := s.CheckServerUpdate(ctx)
	require.True(t, errors.Is(err, selectors.ErrServerNotFound))
}

func TestCheckServerUpdate(t *testing.T) {
	fs := newFakeServer(t, 10)
	s := newSession(t, fs, Config{})

	changed, err := s.CheckServerUpdate(context.Background())
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = s.CheckServerUpdate(context.Background())
	require.NoError(t, err)
	require.False(t, changed)

	fs.mu.Lock()
	fs.updateTime = "2024-02-01T00:00:00Z"
	fs.mu.Unlock()
	changed, err = s.CheckServerUpdate(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
}

func TestServerUpdateResyncBypassesCache(t *testing.T) {
	fs := newFakeServer(t, 4)
	mem, err := cache.NewMemory(1 << 20)
	require.NoError(t, err)
	t.Cleanup(mem.Close)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := New(ctx, Config{
		Servers:  []model.ServerConfig{{ID: "local", Name: "Local", URL: fs.srv.URL}},
		Settings: state.DefaultSettings(),
	}, servers.NewManager(fs.srv.Client(), mem, time.Minute))
	require.NoError(t, s.SyncWithServer(context.Background()))

	_, err = s.CheckServerUpdate(context.Background())
	require.NoError(t, err)

	fs.mu.Lock()
	for i := 5; i <= 8; i++ {
		fs.labels = append(fs.labels, fmt.Sprintf("2020-01-%02dT00:00:00Z", i))
	}
	fs.updateTime = "2024-03-01T00:00:00Z"
	fs.mu.Unlock()

	// 同步本身仍走缓存
	require.NoError(t, s.SyncWithServer(context.Background()))
	require.Len(t, selectors.SelectedDatasetTimeLabels(s.State()), 4)

	s.pollServerUpdate(context.Background())
	require.Len(t, selectors.SelectedDatasetTimeLabels(s.State()), 8)
	require.Contains(t, messagesOf(s, state.MessageInfo), "Server resources updated")
}

func TestUpdateResourcesResyncsFresh(t *testing.T) {
	fs := newFakeServer(t, 4)
	mem, err := cache.NewMemory(1 << 20)
	require.NoError(t, err)
	t.Cleanup(mem.Close)
	s := New(context.Background(), Config{
		Servers:  []model.ServerConfig{{ID: "local", Name: "Local", URL: fs.srv.URL}},
		Settings: state.DefaultSettings(),
	}, servers.NewManager(fs.srv.Client(), mem, time.Minute))
	require.NoError(t, s.SyncWithServer(context.Background()))

	fs.mu.Lock()
	fs.labels = append(fs.labels, "2020-01-05T00:00:00Z")
	fs.mu.Unlock()

	require.NoError(t, s.UpdateResources(context.Background()))
	require.Len(t, selectors.SelectedDatasetTimeLabels(s.State()), 5)
}

func TestExportFiles(t *testing.T) {
	fs := newFakeServer(t, 3)
	s := newSession(t, fs, Config{})

	p, err := s.AddUserPlace(context.Background(), orb.Point{1, 2}, nil)
	require.NoError(t, err)
	s.Wait()

	files, opts, err := s.ExportFiles()
	require.NoError(t, err)
	require.True(t, opts.Zip)
	require.Len(t, files, 2)
	require.Equal(t, "export.txt", files[0].Name)
	require.Equal(t, "export.geojson", files[1].Name)
	require.Contains(t, string(files[1].Data), p.ID)

	settings := s.State().Control.Settings
	settings.ExportTimeSeries = false
	settings.ExportPlacesAsCollection = false
	s.UpdateSettings(context.Background(), settings)
	files, _, err = s.ExportFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, p.ID+".geojson", files[0].Name)
}
