package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/meridian-data/vapor.report/internal/geometry"
)

// Header is the column set of a serialized record table, written once per
// output file.
var Header = []string{
	"id", "time",
	"centroid_lat", "centroid_lon",
	"area_km2", "length_km", "isoq", "mean_angle_deg", "cross_flux",
	"relaxed", "track_id",
	"contour", "axis",
}

// Writer appends record rows to an underlying stream, emitting the header
// before the first row. It is safe to hand it frames one at a time as the
// detector yields them.
type Writer struct {
	cw          *csv.Writer
	wroteHeader bool
}

// NewWriter wraps w in an append-only record table writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{cw: csv.NewWriter(w)}
}

// Append writes the given records, emitting the header first if this is the
// writer's first output.
func (w *Writer) Append(recs ...Record) error {
	if !w.wroteHeader {
		if err := w.cw.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		w.wroteHeader = true
	}
	for _, r := range recs {
		if err := w.cw.Write(encodeRow(r)); err != nil {
			return fmt.Errorf("write record %d@%s: %w", r.ID, r.Time.Format(TimeLayout), err)
		}
	}
	w.cw.Flush()
	return w.cw.Error()
}

func encodeRow(r Record) []string {
	return []string{
		strconv.Itoa(r.ID),
		r.Time.UTC().Format(TimeLayout),
		formatFloat(r.Centroid.Lat),
		formatFloat(r.Centroid.Lon),
		formatFloat(r.AreaKm2),
		formatFloat(r.LengthKm),
		formatFloat(r.Isoq),
		formatFloat(r.MeanAngleDeg),
		formatFloat(r.CrossFlux),
		strconv.FormatBool(r.Relaxed),
		r.TrackID,
		EncodePolyline(r.Contour),
		EncodePolyline(r.Axis),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// EncodePolyline packs a polyline into a single text field as
// "lat lon;lat lon;...".
func EncodePolyline(pts []geometry.Point) string {
	var b strings.Builder
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(formatFloat(p.Lat))
		b.WriteByte(' ')
		b.WriteString(formatFloat(p.Lon))
	}
	return b.String()
}

// DecodePolyline is the inverse of EncodePolyline.
func DecodePolyline(s string) ([]geometry.Point, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	pts := make([]geometry.Point, len(parts))
	for i, part := range parts {
		var lat, lon float64
		if _, err := fmt.Sscanf(part, "%g %g", &lat, &lon); err != nil {
			return nil, fmt.Errorf("polyline point %d %q: %w", i, part, err)
		}
		pts[i] = geometry.Point{Lat: lat, Lon: lon}
	}
	return pts, nil
}

// Read parses an entire record table, header included, from r.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read record table: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows[0]) != len(Header) {
		return nil, fmt.Errorf("unexpected record table header %v", rows[0])
	}
	for i, name := range Header {
		if rows[0][i] != name {
			return nil, fmt.Errorf("record table column %d is %q, want %q", i, rows[0][i], name)
		}
	}

	recs := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func decodeRow(row []string) (Record, error) {
	if len(row) != len(Header) {
		return Record{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(row))
	}
	var r Record
	var err error

	if r.ID, err = strconv.Atoi(row[0]); err != nil {
		return Record{}, fmt.Errorf("id: %w", err)
	}
	if r.Time, err = time.ParseInLocation(TimeLayout, row[1], time.UTC); err != nil {
		return Record{}, fmt.Errorf("time: %w", err)
	}

	floatCols := []struct {
		dst  *float64
		name string
		col  int
	}{
		{&r.Centroid.Lat, "centroid_lat", 2},
		{&r.Centroid.Lon, "centroid_lon", 3},
		{&r.AreaKm2, "area_km2", 4},
		{&r.LengthKm, "length_km", 5},
		{&r.Isoq, "isoq", 6},
		{&r.MeanAngleDeg, "mean_angle_deg", 7},
		{&r.CrossFlux, "cross_flux", 8},
	}
	for _, fc := range floatCols {
		if *fc.dst, err = strconv.ParseFloat(row[fc.col], 64); err != nil {
			return Record{}, fmt.Errorf("%s: %w", fc.name, err)
		}
	}

	if r.Relaxed, err = strconv.ParseBool(row[9]); err != nil {
		return Record{}, fmt.Errorf("relaxed: %w", err)
	}
	r.TrackID = row[10]

	if r.Contour, err = DecodePolyline(row[11]); err != nil {
		return Record{}, fmt.Errorf("contour: %w", err)
	}
	if r.Axis, err = DecodePolyline(row[12]); err != nil {
		return Record{}, fmt.Errorf("axis: %w", err)
	}
	return r, nil
}
