package scene

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Extensions lists the overlay formats Load understands.
var Extensions = []string{".geojson", ".json", ".csv", ".kml", ".wkt"}

// Load reads a lon/lat overlay, picking the format from the extension.
func Load(path string) (Data, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		return LoadGeoJSON(path)
	case ".csv":
		return LoadCSV(path)
	case ".kml":
		return LoadKML(path)
	case ".wkt":
		b, err := os.ReadFile(path)
		if err != nil {
			return Data{}, err
		}
		return ParseWKT(string(b))
	default:
		return Data{}, errors.Errorf("unsupported file: %s", ext)
	}
}

// ParseWKT reads any WKT geometry.
func ParseWKT(s string) (Data, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Data{}, errors.New("empty wkt")
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return Data{}, errors.Wrap(err, "wkt")
	}
	d := NewData()
	addGeom(&d, g)
	if d.IsEmpty() {
		return Data{}, errors.New("wkt: no coordinates parsed")
	}
	return d, nil
}

// LoadGeoJSON reads a FeatureCollection, a Feature or a bare geometry.
func LoadGeoJSON(path string) (Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Data{}, err
	}
	d := NewData()
	var fc geojson.FeatureCollection
	var f geojson.Feature
	var g geom.T
	switch {
	case json.Unmarshal(b, &fc) == nil && len(fc.Features) > 0:
		for _, f := range fc.Features {
			addGeom(&d, f.Geometry)
		}
	case json.Unmarshal(b, &f) == nil && f.Geometry != nil:
		addGeom(&d, f.Geometry)
	default:
		if err := geojson.Unmarshal(b, &g); err != nil {
			return Data{}, errors.Wrapf(err, "geojson %s", filepath.Base(path))
		}
		addGeom(&d, g)
	}
	if d.IsEmpty() {
		return Data{}, errors.New("no geometries found")
	}
	return d, nil
}

func addGeom(d *Data, g geom.T) {
	switch g := g.(type) {
	case *geom.Point:
		if !g.Empty() {
			d.AddPoint(pair(g.Coords()))
		}
	case *geom.MultiPoint:
		for _, c := range g.Coords() {
			d.AddPoint(pair(c))
		}
	case *geom.LineString:
		d.AddLine(pairs(g.Coords()))
	case *geom.MultiLineString:
		for _, ls := range g.Coords() {
			d.AddLine(pairs(ls))
		}
	case *geom.Polygon:
		d.AddPolygon(rings(g.Coords()))
	case *geom.MultiPolygon:
		for _, poly := range g.Coords() {
			d.AddPolygon(rings(poly))
		}
	case *geom.GeometryCollection:
		for _, part := range g.Geoms() {
			addGeom(d, part)
		}
	}
}

func pair(c geom.Coord) [2]float64 { return [2]float64{c.X(), c.Y()} }

func pairs(cs []geom.Coord) [][2]float64 {
	out := make([][2]float64, len(cs))
	for i, c := range cs {
		out[i] = pair(c)
	}
	return out
}

func rings(rs [][]geom.Coord) [][][2]float64 {
	out := make([][][2]float64, len(rs))
	for i, r := range rs {
		out[i] = pairs(r)
	}
	return out
}

// LoadCSV reads a CSV with latitude/longitude columns and returns points.
// Column detection: lat|latitude|y and lon|lng|long|longitude|x (case-insensitive).
func LoadCSV(path string) (Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return Data{}, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	recs, err := r.ReadAll()
	if err != nil {
		return Data{}, errors.Wrap(err, "csv")
	}
	if len(recs) == 0 {
		return Data{}, errors.New("empty csv")
	}
	idxLat, idxLon := -1, -1
	for i, h := range recs[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lat", "latitude", "y":
			if idxLat == -1 {
				idxLat = i
			}
		case "lon", "lng", "long", "longitude", "x":
			if idxLon == -1 {
				idxLon = i
			}
		}
	}
	if idxLat == -1 || idxLon == -1 {
		return Data{}, errors.New("csv: latitude/longitude columns not found")
	}
	d := NewData()
	for _, row := range recs[1:] {
		if idxLon >= len(row) || idxLat >= len(row) {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(row[idxLon]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(row[idxLat]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		d.AddPoint([2]float64{lon, lat})
	}
	if d.IsEmpty() {
		return Data{}, errors.New("csv: no valid points parsed")
	}
	return d, nil
}

// LoadKML extracts placemark points and line strings. KML coordinates are
// "lon,lat[,alt]"; altitude is ignored.
func LoadKML(path string) (Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Data{}, err
	}
	type kmlCoords struct {
		Coordinates string `xml:"coordinates"`
	}
	type kmlPlacemark struct {
		Point      *kmlCoords `xml:"Point"`
		LineString *kmlCoords `xml:"LineString"`
	}
	// placemarks may sit directly under kml, in a Document or in Folders
	type kmlDoc struct {
		Placemarks []kmlPlacemark `xml:"Placemark"`
		Document   struct {
			Placemarks []kmlPlacemark `xml:"Placemark"`
			Folders    []struct {
				Placemarks []kmlPlacemark `xml:"Placemark"`
			} `xml:"Folder"`
		} `xml:"Document"`
	}
	var doc kmlDoc
	if err := xml.Unmarshal(b, &doc); err != nil {
		return Data{}, errors.Wrap(err, "kml")
	}
	placemarks := append(doc.Placemarks, doc.Document.Placemarks...)
	for _, f := range doc.Document.Folders {
		placemarks = append(placemarks, f.Placemarks...)
	}

	d := NewData()
	for _, pm := range placemarks {
		if pm.Point != nil {
			for _, pt := range kmlTuples(pm.Point.Coordinates) {
				d.AddPoint(pt)
			}
		}
		if pm.LineString != nil {
			d.AddLine(kmlTuples(pm.LineString.Coordinates))
		}
	}
	if d.IsEmpty() {
		return Data{}, errors.New("kml: no points found")
	}
	return d, nil
}

// kmlTuples parses whitespace separated lon,lat[,alt] tuples.
func kmlTuples(s string) [][2]float64 {
	var out [][2]float64
	for _, tuple := range strings.Fields(s) {
		vals := strings.Split(tuple, ",")
		if len(vals) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(vals[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, [2]float64{lon, lat})
	}
	return out
}
