package frame

// Zig-zag scan tables for the 4/8/16 transform sizes the band decoder
// codes directly (a 32x32 block is always coded as four 16x16 bands).
// zigzag[ln][y*n+x] is the scan position of raster coefficient (x, y):
// the band decoder permutes the predictor into low-frequency-first scan
// order before de-quantization and permutes the result back on the way
// out.
var zigzag [3][]uint16

func init() {
	for ln := 0; ln < 3; ln++ {
		n := 4 << uint(ln)
		zig := make([]uint16, n*n)
		pos := 0
		for diag := 0; diag <= 2*(n-1); diag++ {
			// Alternate traversal direction per anti-diagonal.
			if diag&1 == 0 {
				for y := min(diag, n-1); y >= 0 && diag-y < n; y-- {
					zig[y*n+(diag-y)] = uint16(pos)
					pos++
				}
			} else {
				for x := min(diag, n-1); x >= 0 && diag-x < n; x-- {
					zig[(diag-x)*n+x] = uint16(pos)
					pos++
				}
			}
		}
		zigzag[ln] = zig
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
