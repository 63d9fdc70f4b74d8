package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Geometry tags used in the string encoding.
const (
	circleTag  = "circle"
	polygonTag = "polygon"
)

// Encode serializes an area using the delimited text format stored in the
// message store's geometry column. Geometries are joined with ";" and fields
// with "|": "circle|<lat>,<lng>|<radius>" and "polygon|<lat>,<lng>|...".
// Unrecognized geometry variants produce no output token and are dropped.
func Encode(area Area) string {
	parts := make([]string, 0, len(area))
	for _, g := range area {
		if s := encodeGeometry(g); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ";")
}

func encodeGeometry(g Geometry) string {
	var sb strings.Builder
	switch v := g.(type) {
	case Circle:
		sb.WriteString(circleTag)
		sb.WriteByte('|')
		writePoint(&sb, v.Center)
		sb.WriteByte('|')
		sb.WriteString(formatCoord(v.Radius))
	case Polygon:
		sb.WriteString(polygonTag)
		for _, vtx := range v.Vertices {
			sb.WriteByte('|')
			writePoint(&sb, vtx)
		}
	default:
		return ""
	}
	return sb.String()
}

func writePoint(sb *strings.Builder, p Point) {
	sb.WriteString(formatCoord(p.Lat))
	sb.WriteByte(',')
	sb.WriteString(formatCoord(p.Lng))
}

// formatCoord uses the shortest decimal representation that parses back to
// the exact same float64, so encode/decode round trips are lossless.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Decode parses the delimited encoding produced by Encode, tolerating
// whitespace around delimiters. A geometry that fails to parse is skipped
// rather than aborting the decode; the surviving geometries are returned in
// order together with the joined parse errors, so callers can log and carry
// on with a partial area.
func Decode(s string) (Area, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var area Area
	var errs []error
	for _, token := range strings.Split(s, ";") {
		g, err := decodeGeometry(token)
		if err != nil {
			errs = append(errs, fmt.Errorf("geometry %q: %w", strings.TrimSpace(token), err))
			continue
		}
		area = append(area, g)
	}
	return area, errors.Join(errs...)
}

func decodeGeometry(token string) (Geometry, error) {
	fields := strings.Split(token, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	switch fields[0] {
	case circleTag:
		if len(fields) != 3 {
			return nil, fmt.Errorf("circle needs center and radius, got %d fields", len(fields)-1)
		}
		center, err := parsePoint(fields[1])
		if err != nil {
			return nil, err
		}
		radius, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid radius %q", fields[2])
		}
		return Circle{Center: center, Radius: radius}, nil

	case polygonTag:
		vertices := make([]Point, 0, len(fields)-1)
		for _, f := range fields[1:] {
			vtx, err := parsePoint(f)
			if err != nil {
				return nil, err
			}
			vertices = append(vertices, vtx)
		}
		return Polygon{Vertices: vertices}, nil

	default:
		return nil, fmt.Errorf("unknown geometry tag %q", fields[0])
	}
}

func parsePoint(s string) (Point, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("invalid coordinate pair %q", s)
	}
	latV, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude %q", lat)
	}
	lngV, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude %q", lng)
	}
	return Point{Lat: latV, Lng: lngV}, nil
}
