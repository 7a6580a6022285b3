package detect

import (
	"container/heap"
	"sort"
)

// peak is a local maximum of the anomaly within one component.
type peak struct {
	cell       int // flat index
	height     float64
	prominence float64
	absorbed   bool
}

// findPeaks returns the regional maxima of the anomaly restricted to the
// component, with topographic prominence computed by a persistence sweep:
// cells are merged in descending anomaly order, and when a basin is absorbed
// into a taller one its peak's prominence is fixed at peak height minus the
// merge level. The tallest peak's prominence equals its height.
func findPeaks(ano []float64, cells []int, ny, nx int, cyclic bool) []peak {
	order := make([]int, len(cells))
	copy(order, cells)
	sort.SliceStable(order, func(i, j int) bool {
		if ano[order[i]] != ano[order[j]] {
			return ano[order[i]] > ano[order[j]]
		}
		return order[i] < order[j] // deterministic tie-break
	})

	parent := make(map[int]int, len(cells)) // union-find, rooted at basin peaks
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	peaks := make(map[int]*peak)
	active := make(map[int]bool, len(cells))

	for _, c := range order {
		y, x := c/nx, c%nx
		var roots []int
		neighbors8(y, x, ny, nx, cyclic, func(yy, xx int) {
			j := yy*nx + xx
			if active[j] {
				r := find(j)
				seen := false
				for _, rr := range roots {
					if rr == r {
						seen = true
						break
					}
				}
				if !seen {
					roots = append(roots, r)
				}
			}
		})

		active[c] = true
		switch len(roots) {
		case 0:
			// new basin: c is a regional maximum
			parent[c] = c
			peaks[c] = &peak{cell: c, height: ano[c]}
		default:
			// attach to the tallest adjacent basin; every other basin is
			// absorbed here, fixing its peak prominence at the saddle
			sort.Slice(roots, func(i, j int) bool {
				hi, hj := peaks[roots[i]].height, peaks[roots[j]].height
				if hi != hj {
					return hi > hj
				}
				return roots[i] < roots[j]
			})
			tallest := roots[0]
			parent[c] = tallest
			for _, r := range roots[1:] {
				peaks[r].prominence = peaks[r].height - ano[c]
				peaks[r].absorbed = true
				parent[r] = tallest
			}
		}
	}

	out := make([]peak, 0, len(peaks))
	for _, p := range peaks {
		if !p.absorbed {
			// never absorbed: the component's dominant peak
			p.prominence = p.height
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].height != out[j].height {
			return out[i].height > out[j].height
		}
		return out[i].cell < out[j].cell
	})
	return out
}

// floodItem is a priority-queue entry for the watershed flood.
type floodItem struct {
	cell  int
	value float64
	order int // insertion order, for deterministic ties
}

type floodQueue []floodItem

func (q floodQueue) Len() int { return len(q) }
func (q floodQueue) Less(i, j int) bool {
	if q[i].value != q[j].value {
		return q[i].value > q[j].value // highest anomaly first
	}
	return q[i].order < q[j].order
}
func (q floodQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *floodQueue) Push(x interface{}) { *q = append(*q, x.(floodItem)) }
func (q *floodQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// watershed partitions the component's cells among the seed peaks by
// priority flooding: basins grow outward from the seeds in descending
// anomaly order, and each cell joins the basin that reaches it first.
// Returns a map from flat cell index to seed index.
func watershed(ano []float64, cells []int, seeds []peak, ny, nx int, cyclic bool) map[int]int {
	inComp := make(map[int]bool, len(cells))
	for _, c := range cells {
		inComp[c] = true
	}

	assign := make(map[int]int, len(cells))
	q := &floodQueue{}
	order := 0
	for si, s := range seeds {
		assign[s.cell] = si
		heap.Push(q, floodItem{cell: s.cell, value: ano[s.cell], order: order})
		order++
	}

	for q.Len() > 0 {
		it := heap.Pop(q).(floodItem)
		si := assign[it.cell]
		y, x := it.cell/nx, it.cell%nx
		neighbors8(y, x, ny, nx, cyclic, func(yy, xx int) {
			j := yy*nx + xx
			if !inComp[j] {
				return
			}
			if _, claimed := assign[j]; claimed {
				return
			}
			assign[j] = si
			heap.Push(q, floodItem{cell: j, value: ano[j], order: order})
			order++
		})
	}
	return assign
}

// partitionComponent applies the single-dome rule. maxPHRatio is the
// maximum prominence-to-height ratio a local maximum may have and still
// count as part of a single dome: peaks above it are independent domes.
// When two or more independent domes share one outer contour the component
// is split by a watershed seeded at those peaks; otherwise it stays whole.
// Returns the cell sets of the resulting sub-objects, deterministic in
// order.
func partitionComponent(ano []float64, cells []int, ny, nx int, cyclic bool, maxPHRatio float64) [][]int {
	peaks := findPeaks(ano, cells, ny, nx, cyclic)
	if len(peaks) < 2 {
		return [][]int{cells}
	}
	seeds := peaks[:0]
	for _, p := range peaks {
		if p.height > 0 && p.prominence/p.height > maxPHRatio {
			seeds = append(seeds, p)
		}
	}
	if len(seeds) < 2 {
		return [][]int{cells}
	}

	assign := watershed(ano, cells, seeds, ny, nx, cyclic)
	parts := make([][]int, len(seeds))
	for _, c := range cells { // raster order preserved per part
		parts[assign[c]] = append(parts[assign[c]], c)
	}
	out := parts[:0]
	for _, p := range parts {
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}
