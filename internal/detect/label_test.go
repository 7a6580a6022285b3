package detect

import (
	"sort"
	"testing"
)

// mask builds a ny*nx boolean raster from marked cell indices.
func mask(ny, nx int, on ...int) []bool {
	m := make([]bool, ny*nx)
	for _, c := range on {
		m[c] = true
	}
	return m
}

func TestLabelComponents(t *testing.T) {
	const ny, nx = 4, 6
	// two blobs, one touching the other only diagonally (8-conn merges them)
	m := mask(ny, nx, 0, 1, nx+2, 2*nx+5)
	labels, n := labelComponents(m, ny, nx, false)
	if n != 2 {
		t.Fatalf("components = %d, want 2", n)
	}
	if labels[0] != 1 || labels[1] != 1 || labels[nx+2] != 1 {
		t.Error("diagonal neighbour not merged under 8-connectivity")
	}
	if labels[2*nx+5] != 2 {
		t.Errorf("isolated cell label = %d, want 2", labels[2*nx+5])
	}
}

func TestLabelComponentsSeamWrap(t *testing.T) {
	const ny, nx = 3, 8
	m := mask(ny, nx, nx, 2*nx-1) // row 1: first and last column
	labels, n := labelComponents(m, ny, nx, true)
	if n != 1 {
		t.Fatalf("cyclic components = %d, want 1", n)
	}
	if labels[nx] != labels[2*nx-1] {
		t.Error("seam neighbours carry different labels")
	}
	_, n = labelComponents(m, ny, nx, false)
	if n != 2 {
		t.Fatalf("non-cyclic components = %d, want 2", n)
	}
}

func TestFillHoles(t *testing.T) {
	const ny, nx = 5, 5
	// ring around the centre cell
	ring := []int{6, 7, 8, 11, 13, 16, 17, 18}
	m := mask(ny, nx, ring...)
	filled := fillHoles(m, ny, nx, 1, false)
	if !filled[12] {
		t.Error("single-cell hole not closed")
	}
	for _, c := range ring {
		if !filled[c] {
			t.Errorf("ring cell %d lost during closing", c)
		}
	}
	// radius 0 disables filling
	same := fillHoles(m, ny, nx, 0, false)
	if same[12] {
		t.Error("fill radius 0 should leave the hole open")
	}
}

func TestTraceContourRectangle(t *testing.T) {
	const ny, nx = 6, 8
	var cells []int
	for y := 1; y <= 3; y++ {
		for x := 2; x <= 5; x++ {
			cells = append(cells, y*nx+x)
		}
	}
	ring := traceContour(cells, ny, nx, false)
	if len(ring) == 0 {
		t.Fatal("empty contour")
	}
	// every boundary cell of the 4x3 rectangle appears; the interior two do not
	seen := map[int]bool{}
	for _, c := range ring {
		seen[c] = true
	}
	for _, c := range cells {
		y, x := c/nx, c%nx
		interior := y == 2 && (x == 3 || x == 4)
		if interior && seen[c] {
			t.Errorf("interior cell (%d,%d) on contour", y, x)
		}
		if !interior && !seen[c] {
			t.Errorf("boundary cell (%d,%d) missing from contour", y, x)
		}
	}
	if ring[0] != cells[0] {
		t.Errorf("contour starts at %d, want raster-first cell %d", ring[0], cells[0])
	}
}

func TestTraceContourSingleCell(t *testing.T) {
	ring := traceContour([]int{10}, 4, 4, false)
	if len(ring) != 1 || ring[0] != 10 {
		t.Fatalf("single-cell contour = %v", ring)
	}
}

func TestPartitionComponentSplitsTwoDomes(t *testing.T) {
	const ny, nx = 5, 20
	ano := make([]float64, ny*nx)
	var cells []int
	// one connected strip along row 2 with two well separated domes
	for x := 2; x <= 17; x++ {
		c := 2*nx + x
		cells = append(cells, c)
		ano[c] = 1
	}
	ano[2*nx+4] = 10
	ano[2*nx+15] = 9

	parts := partitionComponent(ano, cells, ny, nx, false, 0.6)
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	total := 0
	owner := map[int]int{}
	for i, p := range parts {
		total += len(p)
		for _, c := range p {
			owner[c] = i
		}
	}
	if total != len(cells) {
		t.Fatalf("partition covers %d cells, want %d", total, len(cells))
	}
	if owner[2*nx+4] == owner[2*nx+15] {
		t.Error("the two domes landed in the same part")
	}
	// each part stays contiguous around its own peak
	if owner[2*nx+3] != owner[2*nx+4] || owner[2*nx+16] != owner[2*nx+15] {
		t.Error("cells adjacent to a peak split away from it")
	}
}

func TestPartitionComponentKeepsSingleDome(t *testing.T) {
	const ny, nx = 5, 20
	ano := make([]float64, ny*nx)
	var cells []int
	for x := 2; x <= 17; x++ {
		c := 2*nx + x
		cells = append(cells, c)
		ano[c] = 1
	}
	// secondary bump too shallow relative to its height to count
	ano[2*nx+4] = 10
	ano[2*nx+15] = 1.2

	parts := partitionComponent(ano, cells, ny, nx, false, 0.6)
	if len(parts) != 1 {
		t.Fatalf("parts = %d, want 1 for a single dominant dome", len(parts))
	}
	got := append([]int(nil), parts[0]...)
	sort.Ints(got)
	want := append([]int(nil), cells...)
	sort.Ints(want)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("partition altered the cell set at %d: %d != %d", i, got[i], want[i])
		}
	}
}
