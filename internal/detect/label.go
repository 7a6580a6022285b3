package detect

// binarize thresholds the anomaly slab into a boolean mask.
func binarize(ano []float64, cutoff float64) []bool {
	mask := make([]bool, len(ano))
	for i, v := range ano {
		mask[i] = v >= cutoff && v > 0
	}
	return mask
}

// neighbors8 invokes fn for every in-domain 8-neighbour of (y, x), wrapping
// the longitude index on cyclic domains.
func neighbors8(y, x, ny, nx int, cyclic bool, fn func(y, x int)) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dy == 0 && dx == 0 {
				continue
			}
			yy := y + dy
			if yy < 0 || yy >= ny {
				continue
			}
			xx := x + dx
			if xx < 0 || xx >= nx {
				if !cyclic {
					continue
				}
				xx = ((xx % nx) + nx) % nx
			}
			fn(yy, xx)
		}
	}
}

// fillHoles applies a binary closing (dilate then erode, FillRadius passes
// each) to remove small holes inside object contours. Out-of-domain cells
// count as foreground during erosion so domain edges are not eaten away.
func fillHoles(mask []bool, ny, nx, radius int, cyclic bool) []bool {
	if radius <= 0 {
		return mask
	}
	cur := mask
	for i := 0; i < radius; i++ {
		cur = dilate(cur, ny, nx, cyclic)
	}
	for i := 0; i < radius; i++ {
		cur = erodeMask(cur, ny, nx, cyclic)
	}
	return cur
}

func dilate(mask []bool, ny, nx int, cyclic bool) []bool {
	out := make([]bool, len(mask))
	copy(out, mask)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			if out[y*nx+x] {
				continue
			}
			neighbors8(y, x, ny, nx, cyclic, func(yy, xx int) {
				if mask[yy*nx+xx] {
					out[y*nx+x] = true
				}
			})
		}
	}
	return out
}

func erodeMask(mask []bool, ny, nx int, cyclic bool) []bool {
	out := make([]bool, len(mask))
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			if !mask[y*nx+x] {
				continue
			}
			keep := true
			for dy := -1; dy <= 1 && keep; dy++ {
				for dx := -1; dx <= 1 && keep; dx++ {
					yy := y + dy
					xx := x + dx
					if yy < 0 || yy >= ny {
						continue // out of domain counts as foreground
					}
					if xx < 0 || xx >= nx {
						if !cyclic {
							continue
						}
						xx = ((xx % nx) + nx) % nx
					}
					if !mask[yy*nx+xx] {
						keep = false
					}
				}
			}
			out[y*nx+x] = keep
		}
	}
	return out
}

// labelComponents assigns a positive label to every 8-connected component of
// the mask, in raster-scan discovery order. On cyclic domains connectivity
// wraps across the longitude seam, so an object straddling the seam receives
// a single label.
func labelComponents(mask []bool, ny, nx int, cyclic bool) (labels []int, count int) {
	labels = make([]int, ny*nx)
	var stack []int

	for start := 0; start < ny*nx; start++ {
		if !mask[start] || labels[start] != 0 {
			continue
		}
		count++
		labels[start] = count
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			y, x := i/nx, i%nx
			neighbors8(y, x, ny, nx, cyclic, func(yy, xx int) {
				j := yy*nx + xx
				if mask[j] && labels[j] == 0 {
					labels[j] = count
					stack = append(stack, j)
				}
			})
		}
	}
	return labels, count
}

// componentCells collects, in raster order, the flat indices of every cell
// carrying the given label.
func componentCells(labels []int, label int) []int {
	var cells []int
	for i, l := range labels {
		if l == label {
			cells = append(cells, i)
		}
	}
	return cells
}
