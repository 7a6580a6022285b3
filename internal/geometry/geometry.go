// Package geometry provides the spherical-earth primitives shared by the
// detection and tracking stages: great-circle distances, cell areas,
// polyline measurement and simplification, and the single seam-aware
// longitude difference used everywhere longitudes are compared.
package geometry

import "math"

// EarthRadiusKm is the mean earth radius used for all spherical computations.
const EarthRadiusKm = 6371.0

// DegToRad converts degrees to radians.
func DegToRad(d float64) float64 { return d * math.Pi / 180.0 }

// RadToDeg converts radians to degrees.
func RadToDeg(r float64) float64 { return r * 180.0 / math.Pi }

// WrapLonDiff returns the shortest signed angular difference lon2-lon1 in
// degrees, folded into (-180, 180]. Every longitude comparison in the module
// goes through this function so cyclic domains behave identically in
// labeling, axis building and track matching.
func WrapLonDiff(lon1, lon2 float64) float64 {
	d := math.Mod(lon2-lon1, 360.0)
	if d > 180.0 {
		d -= 360.0
	} else if d <= -180.0 {
		d += 360.0
	}
	return d
}

// GreatCircleKm returns the great-circle distance in km between two
// (lat, lon) points in degrees, via the haversine formula. The haversine
// form is numerically stable for the short arcs that dominate anchor
// matching.
func GreatCircleKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := DegToRad(lat1)
	phi2 := DegToRad(lat2)
	dphi := DegToRad(lat2 - lat1)
	dlam := DegToRad(WrapLonDiff(lon1, lon2))

	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlam/2)*math.Sin(dlam/2)
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// CellAreaKm2 returns the area in km² of a grid cell centred at latitude lat
// (degrees) with angular extents dlat x dlon (degrees). The spherical zone
// formula weighs cells by the cosine of latitude rather than treating pixels
// as planar squares.
func CellAreaKm2(lat, dlat, dlon float64) float64 {
	latLo := DegToRad(lat - dlat/2)
	latHi := DegToRad(lat + dlat/2)
	band := math.Abs(math.Sin(latHi) - math.Sin(latLo))
	return EarthRadiusKm * EarthRadiusKm * band * math.Abs(DegToRad(dlon))
}

// Point is a location on the sphere in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// PolylineLengthKm sums great-circle segment lengths along an ordered
// polyline.
func PolylineLengthKm(pts []Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += GreatCircleKm(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
	}
	return total
}

// perpDistanceDeg returns the perpendicular distance (in degrees, treating
// lat/lon as planar with seam-aware longitudes) from p to segment a-b.
// Planar distance is the right metric here because the simplification
// tolerance is specified in degrees of lat/lon.
func perpDistanceDeg(p, a, b Point) float64 {
	dx := WrapLonDiff(a.Lon, b.Lon)
	dy := b.Lat - a.Lat
	px := WrapLonDiff(a.Lon, p.Lon)
	py := p.Lat - a.Lat

	segLen2 := dx*dx + dy*dy
	if segLen2 == 0 {
		return math.Hypot(px, py)
	}
	t := (px*dx + py*dy) / segLen2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	ex := px - t*dx
	ey := py - t*dy
	return math.Hypot(ex, ey)
}

// SimplifyRDP reduces a polyline with the Ramer-Douglas-Peucker algorithm
// using a tolerance in degrees. Endpoints are always retained. A polyline of
// fewer than three points is returned unchanged.
func SimplifyRDP(pts []Point, tolerance float64) []Point {
	if len(pts) < 3 || tolerance <= 0 {
		out := make([]Point, len(pts))
		copy(out, pts)
		return out
	}

	keep := make([]bool, len(pts))
	keep[0] = true
	keep[len(pts)-1] = true

	type span struct{ lo, hi int }
	stack := []span{{0, len(pts) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}
		maxDist := -1.0
		maxIdx := -1
		for i := s.lo + 1; i < s.hi; i++ {
			d := perpDistanceDeg(pts[i], pts[s.lo], pts[s.hi])
			if d > maxDist {
				maxDist = d
				maxIdx = i
			}
		}
		if maxDist > tolerance {
			keep[maxIdx] = true
			stack = append(stack, span{s.lo, maxIdx}, span{maxIdx, s.hi})
		}
	}

	out := make([]Point, 0, len(pts))
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

// LocalTangentKm converts a small lat/lon displacement at latitude lat into
// an approximate local (east, north) displacement in km. Used to express
// axis directions and flux vectors in a common frame.
func LocalTangentKm(lat, dlat, dlon float64) (eastKm, northKm float64) {
	eastKm = DegToRad(dlon) * EarthRadiusKm * math.Cos(DegToRad(lat))
	northKm = DegToRad(dlat) * EarthRadiusKm
	return eastKm, northKm
}
