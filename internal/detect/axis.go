package detect

import (
	"container/heap"
	"math"

	"github.com/meridian-data/vapor.report/internal/geometry"
)

// axisResult is the skeleton path through an object before simplification.
type axisResult struct {
	cells []int // ordered flat indices
}

// axisGraph is the directed adjacency over a component's cells. A connection
// a→b exists only where the flux component parallel to the step direction
// exceeds edgeEps of the total flux magnitude, so the axis follows the
// prevailing transport rather than cutting against it.
type axisGraph struct {
	nodes []int         // component cells in raster order
	index map[int]int   // flat cell index → node ordinal
	adj   [][]axisEdge  // per node
}

type axisEdge struct {
	to   int     // node ordinal
	cost float64 // Dijkstra cost, 1/(ano[a]+ano[b]+eps)
	gain float64 // anomaly gained by taking the edge: ano[b]
}

const axisCostEps = 1e-9

// buildAxisGraph constructs the flux-gated directed graph for one component.
func buildAxisGraph(cells []int, ano, u, v, lats, lons []float64, nx int, cyclic bool, edgeEps float64) *axisGraph {
	g := &axisGraph{
		nodes: cells,
		index: make(map[int]int, len(cells)),
		adj:   make([][]axisEdge, len(cells)),
	}
	for i, c := range cells {
		g.index[c] = i
	}
	ny := len(lats)

	for i, c := range cells {
		y, x := c/nx, c%nx
		neighbors8(y, x, ny, nx, cyclic, func(yy, xx int) {
			j, ok := g.index[yy*nx+xx]
			if !ok {
				return
			}
			// step direction in the local tangent frame, km
			dlat := lats[yy] - lats[y]
			dlon := geometry.WrapLonDiff(lons[x], lons[xx])
			stepE, stepN := geometry.LocalTangentKm((lats[y]+lats[yy])/2, dlat, dlon)
			stepLen := math.Hypot(stepE, stepN)
			if stepLen == 0 {
				return
			}

			// mean flux across the step
			fe := (u[c] + u[yy*nx+xx]) / 2
			fn := (v[c] + v[yy*nx+xx]) / 2
			fluxMag := math.Hypot(fe, fn)
			if fluxMag == 0 {
				return
			}
			along := (fe*stepE + fn*stepN) / stepLen
			if along < edgeEps*fluxMag {
				return
			}

			g.adj[i] = append(g.adj[i], axisEdge{
				to:   j,
				cost: 1 / (ano[c] + ano[yy*nx+xx] + axisCostEps),
				gain: ano[yy*nx+xx],
			})
		})
	}
	return g
}

// boundaryNodes returns the ordinals of component cells that touch the
// component's edge, in raster order. These are the candidate axis endpoints.
func (g *axisGraph) boundaryNodes(ny, nx int, cyclic bool) []int {
	inComp := g.index
	var out []int
	for i, c := range g.nodes {
		y, x := c/nx, c%nx
		interior := true
		if y == 0 || y == ny-1 || (!cyclic && (x == 0 || x == nx-1)) {
			interior = false
		} else {
			count := 0
			neighbors8(y, x, ny, nx, cyclic, func(yy, xx int) {
				if _, ok := inComp[yy*nx+xx]; ok {
					count++
				}
			})
			interior = count == 8
		}
		if !interior {
			out = append(out, i)
		}
	}
	return out
}

// pqItem is a Dijkstra frontier entry.
type pqItem struct {
	node int
	dist float64
}

type pq []pqItem

func (q pq) Len() int            { return len(q) }
func (q pq) Less(i, j int) bool  { return q[i].dist < q[j].dist || (q[i].dist == q[j].dist && q[i].node < q[j].node) }
func (q pq) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pq) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *pq) Pop() interface{} {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// findAxis locates the object's skeleton: among all boundary-to-boundary
// directed paths through the flux-gated graph it picks the one carrying the
// most accumulated anomaly, using Dijkstra with inverse-anomaly edge costs
// from each boundary source. Deterministic for identical input.
func findAxis(g *axisGraph, ano []float64, ny, nx int, cyclic bool) axisResult {
	if len(g.nodes) == 0 {
		return axisResult{}
	}
	boundary := g.boundaryNodes(ny, nx, cyclic)
	if len(boundary) == 0 {
		boundary = []int{0}
	}
	isBoundary := make([]bool, len(g.nodes))
	for _, b := range boundary {
		isBoundary[b] = true
	}

	bestGain := math.Inf(-1)
	var bestPath []int

	dist := make([]float64, len(g.nodes))
	gain := make([]float64, len(g.nodes))
	prev := make([]int, len(g.nodes))

	for _, src := range boundary {
		for i := range dist {
			dist[i] = math.Inf(1)
			gain[i] = 0
			prev[i] = -1
		}
		dist[src] = 0
		gain[src] = ano[g.nodes[src]]

		q := &pq{{node: src, dist: 0}}
		for q.Len() > 0 {
			it := heap.Pop(q).(pqItem)
			if it.dist > dist[it.node] {
				continue
			}
			for _, e := range g.adj[it.node] {
				nd := it.dist + e.cost
				if nd < dist[e.to] {
					dist[e.to] = nd
					gain[e.to] = gain[it.node] + e.gain
					prev[e.to] = it.node
					heap.Push(q, pqItem{node: e.to, dist: nd})
				}
			}
		}

		for _, dst := range boundary {
			if dst == src || math.IsInf(dist[dst], 1) {
				continue
			}
			if gain[dst] > bestGain {
				bestGain = gain[dst]
				path := []int{}
				for n := dst; n != -1; n = prev[n] {
					path = append(path, g.nodes[n])
				}
				// reverse into src→dst order
				for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
					path[l], path[r] = path[r], path[l]
				}
				bestPath = path
			}
		}
	}

	if bestPath == nil {
		// flux gating left no usable path; fall back to the anomaly maximum
		best := g.nodes[0]
		for _, c := range g.nodes[1:] {
			if ano[c] > ano[best] {
				best = c
			}
		}
		bestPath = []int{best}
	}
	return axisResult{cells: bestPath}
}

// axisPolyline converts the axis cell path to lat/lon and simplifies it
// with the configured RDP tolerance.
func axisPolyline(cells []int, lats, lons []float64, tolerance float64) []geometry.Point {
	nx := len(lons)
	pts := make([]geometry.Point, len(cells))
	for i, c := range cells {
		pts[i] = geometry.Point{Lat: lats[c/nx], Lon: lons[c%nx]}
	}
	return geometry.SimplifyRDP(pts, tolerance)
}
