package userplace

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

const stations = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [8.0, 54.1]},
     "properties": {"Station": "North", "Name": "Helgoland", "date": "2021-06-01"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [8.5, 54.5]},
     "properties": {"station": "North", "name": "Sylt"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [12.0, 54.2]},
     "properties": {"station": "Baltic", "color": "green"}},
    {"type": "Feature", "geometry": null, "properties": {"station": "Ghost"}}
  ]
}`

func TestFromGeoJSONGroupsByProperty(t *testing.T) {
	groups, err := FromGeoJSON(stations, DefaultGeoJSONOptions())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	north, baltic := groups[0], groups[1]
	require.Equal(t, "North", north.Title)
	require.Len(t, north.Features, 2)
	require.Equal(t, "Baltic", baltic.Title)
	require.Len(t, baltic.Features, 1)
	require.NotEqual(t, north.ID, baltic.ID)

	h := north.Features[0]
	require.Equal(t, "Helgoland", h.Label())
	require.Equal(t, "2021-06-01", h.Time())
	require.Equal(t, "GeoJSON", h.Source())
	require.Equal(t, Palette[0], h.Color())
	require.Equal(t, orb.Point{8.0, 54.1}, h.Geometry)

	b := baltic.Features[0]
	require.Equal(t, "green", b.Color())
	require.Equal(t, DefaultLabelPrefix+"1", b.Label())
}

func TestFromGeoJSONFeatureAndGeometry(t *testing.T) {
	groups, err := FromGeoJSON(`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}`, DefaultGeoJSONOptions())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, DefaultGroupPrefix+"1", groups[0].Title)

	groups, err = FromGeoJSON(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, GeoJSONOptions{})
	require.NoError(t, err)
	require.Len(t, groups[0].Features, 1)
	_, ok := groups[0].Features[0].Geometry.(orb.Polygon)
	require.True(t, ok)
}

func TestFromGeoJSONUngroupedFeaturesShareDefaultGroup(t *testing.T) {
	text := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}},
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[3,4]},"properties":{"name":"B"}},
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[5,6]},"properties":{"station":"S"}}
	]}`
	groups, err := FromGeoJSON(text, DefaultGeoJSONOptions())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, DefaultGroupPrefix+"1", groups[0].Title)
	require.Len(t, groups[0].Features, 2)
	require.Equal(t, "S", groups[1].Title)
}

func TestFromGeoJSONErrors(t *testing.T) {
	for _, text := range []string{`{"type":`, `{"type":"Banana"}`, `[1,2]`} {
		groups, err := FromGeoJSON(text, DefaultGeoJSONOptions())
		require.ErrorIs(t, err, ErrFormat, text)
		require.Nil(t, groups)
	}
	groups, err := FromGeoJSON("   ", DefaultGeoJSONOptions())
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestFromCSV(t *testing.T) {
	text := "# comment\nlon,lat,name,cruise,value\n8,54,A,c1,1.5\n9,55,B,c1,2\n10,56,C,c2,3\n"
	groups, err := FromCSV(text, DefaultCSVOptions())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Len(t, groups[0].Features, 2)
	p := groups[0].Features[1]
	require.Equal(t, "B", p.Label())
	require.Equal(t, "CSV", p.Source())
	require.Equal(t, "2", p.Properties["value"])
	require.Equal(t, orb.Point{9, 55}, p.Geometry)
	require.NotContains(t, p.Properties, "lon")
}

func TestFromCSVWithGeometryColumnAndTab(t *testing.T) {
	opts := DefaultCSVOptions()
	opts.Separator = "TAB"
	text := "geometry\tlabel\nPOINT(1 2)\tone\nLINESTRING(0 0,1 1)\ttwo\n"
	groups, err := FromCSV(text, opts)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Features, 2)
	_, ok := groups[0].Features[1].Geometry.(orb.LineString)
	require.True(t, ok)
}

func TestFromCSVErrorsAdmitNothing(t *testing.T) {
	cases := []string{
		"name,value\nA,1\n",
		"lon,lat\n1,x\n",
		"lon,lat\n1,2,3\n",
		"geometry\nPOINT (1\n",
	}
	for _, text := range cases {
		groups, err := FromCSV(text, DefaultCSVOptions())
		require.ErrorIs(t, err, ErrFormat, text)
		require.Nil(t, groups)
	}
	opts := DefaultCSVOptions()
	opts.ForceGeometry = true
	_, err := FromCSV("lon,lat\n1,2\n", opts)
	require.ErrorIs(t, err, ErrFormat)
}

func TestFromWKT(t *testing.T) {
	text := "POINT(1 2)\n\nPOLYGON((0 0,1 0,1 1,0 0))\n"
	groups, err := FromWKT(text, WKTOptions{Group: "Drawn", Time: "2020-01-01"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "Drawn", groups[0].Title)
	require.Len(t, groups[0].Features, 2)
	require.Equal(t, "2020-01-01", groups[0].Features[0].Time())
	require.Equal(t, DefaultLabelPrefix+"2", groups[0].Features[1].Label())

	groups, err = FromWKT("POINT(1 2)\nNOT WKT\n", WKTOptions{})
	require.ErrorIs(t, err, ErrFormat)
	require.Nil(t, groups)
}

func TestParseNames(t *testing.T) {
	require.Equal(t, []string{"group", "cruise", "station", "type"}, ParseNames(" Group, cruise,,station , TYPE "))
	require.Empty(t, ParseNames(""))
}
