// Package depth converts raw normalized depth planes into linear distances
// and persists them as binary blobs and visual rasters.
package depth

import (
	"log/slog"

	"github.com/chewxy/math32"
)

// degenEpsilon bounds the projection denominator below which a sample is
// treated as invalid (sky, unwritten pixel, or sensor dropout).
const degenEpsilon = 1e-4

// Decode converts one reversed-logarithmic NDC depth sample in [0,1] to a
// linear distance in meters. Degenerate samples decode to +Inf.
func Decode(ndc, near float32) float32 {
	denom := (ndc*2 - 1) - 1
	if math32.Abs(denom) <= degenEpsilon {
		return math32.Inf(1)
	}
	return (-2 * near) / denom
}

// DecodeAll decodes a plane in place and returns the number of samples
// decoded. A mismatch between the transferred element count and the
// expected plane size is a soft fault: the smaller extent wins and a
// warning is logged.
func DecodeAll(values []float32, expected int, near float32) int {
	n := len(values)
	if n != expected {
		slog.Warn("depth: plane size mismatch", "got", n, "want", expected)
		if expected < n {
			n = expected
		}
	}
	for i := 0; i < n; i++ {
		values[i] = Decode(values[i], near)
	}
	return n
}
