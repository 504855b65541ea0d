package store

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"geoview/internal/model"
)

func TestPlaceGroupEncoding(t *testing.T) {
	pg := &model.PlaceGroup{ID: "g1", Title: "Cruise", Features: []*model.Place{
		model.NewPlace("p1", orb.Point{8, 54}, map[string]any{"label": "A", "color": "red"}),
		model.NewPlace("p2", orb.LineString{{0, 0}, {1, 1}}, nil),
	}}
	raw, err := EncodePlaceGroup(pg)
	require.NoError(t, err)

	got, err := DecodePlaceGroup("g1", "Cruise", raw)
	require.NoError(t, err)
	require.Equal(t, pg.PlaceIDs(), got.PlaceIDs())
	require.Equal(t, "A", got.Features[0].Label())
	require.Equal(t, orb.Point{8, 54}, got.Features[0].Geometry)
	require.Equal(t, orb.LineString{{0, 0}, {1, 1}}, got.Features[1].Geometry)

	_, err = DecodePlaceGroup("g", "t", []byte(`not json`))
	require.Error(t, err)
}
