package track

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/meridian-data/vapor.report/internal/geometry"
	"github.com/meridian-data/vapor.report/internal/records"
)

type anchor = geometry.Point

// sampleAnchors picks n representative points along a record's axis: both
// endpoints plus evenly spaced interior vertices. Records whose axis has
// fewer vertices than n contribute every vertex; a record with no axis
// falls back to its centroid.
func sampleAnchors(r *records.Record, n int) []anchor {
	axis := r.Axis
	if len(axis) == 0 {
		return []anchor{r.Centroid}
	}
	if len(axis) <= n {
		out := make([]anchor, len(axis))
		copy(out, axis)
		return out
	}
	out := make([]anchor, n)
	last := float64(len(axis) - 1)
	for i := 0; i < n; i++ {
		idx := int(math.Round(float64(i) * last / float64(n-1)))
		out[i] = axis[idx]
	}
	return out
}

// anchorDistanceKm is the minimum great-circle distance over anchor pairs.
// Great-circle arithmetic takes the shorter arc, so the longitude seam needs
// no special casing here.
func anchorDistanceKm(a, b []anchor) float64 {
	best := math.Inf(1)
	for _, p := range a {
		for _, q := range b {
			if d := geometry.GreatCircleKm(p.Lat, p.Lon, q.Lat, q.Lon); d < best {
				best = d
			}
		}
	}
	return best
}

// matchSimple is the greedy scheme: objects in increasing id order each take
// the nearest still-unmatched open track within the cutoff. Ties go to the
// smaller distance, then the earlier-created track.
func (tk *Tracker) matchSimple(dist [][]float64, assigned []int) {
	taken := make([]bool, len(tk.open))
	// records arrive in id order within a frame
	for j := range assigned {
		best, bestDist := -1, math.Inf(1)
		for i := range tk.open {
			if taken[i] {
				continue
			}
			d := dist[i][j]
			if d > tk.opts.MaxDistKm {
				continue
			}
			if best < 0 || d < bestDist || (d == bestDist && tk.open[i].order < tk.open[best].order) {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			assigned[j] = best
			taken[best] = true
		}
	}
}

// infeasibleCost pads the assignment matrix: far enough above any real
// distance on Earth that the solver never prefers an infeasible pair over a
// feasible one.
const infeasibleCost = 1e7

// matchComplex solves per-step correspondence as a global minimum-cost
// bipartite assignment, which settles the contention cases greedy matching
// gets wrong: two tracks pulling on one object, or one track with several
// eligible objects.
func (tk *Tracker) matchComplex(dist [][]float64, assigned []int) {
	nt, no := len(tk.open), len(assigned)
	n := nt
	if no > n {
		n = no
	}
	cost := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := infeasibleCost
			if i < nt && j < no && dist[i][j] <= tk.opts.MaxDistKm {
				c = dist[i][j]
			}
			cost.Set(i, j, c)
		}
	}
	rowOf := solveAssignment(cost)
	for j := 0; j < no; j++ {
		i := rowOf[j]
		if i < nt && cost.At(i, j) < infeasibleCost {
			assigned[j] = i
		}
	}
}

// solveAssignment runs the Hungarian algorithm with row/column potentials on
// a square cost matrix and returns, for each column, its assigned row. The
// augmenting-path order is fixed by row index, so the result is
// deterministic.
func solveAssignment(cost *mat.Dense) []int {
	n, _ := cost.Dims()
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row matched to column j; columns 1-based, 0 is virtual
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := 1; j <= n; j++ {
			minv[j] = math.Inf(1)
		}
		for {
			used[j0] = true
			i0, delta, j1 := p[j0], math.Inf(1), 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rowOf := make([]int, n)
	for j := 1; j <= n; j++ {
		rowOf[j-1] = p[j] - 1
	}
	return rowOf
}
