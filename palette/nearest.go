package palette

import (
	"fmt"
	"math"

	"github.com/bodgit/fbin/bgr555"
)

// Metric selects how the distance between two colors is measured.
type Metric int

const (
	// Euclidean is the plain squared distance, dr² + dg² + db².
	Euclidean Metric = iota
	// Weighted scales each squared component by how sensitive the eye is
	// to it, 3dr² + 6dg² + db².
	Weighted
)

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Weighted:
		return "weighted"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// Distance returns the distance between a and b.
func (m Metric) Distance(a, b bgr555.RGB) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)

	if m == Weighted {
		return 3*dr*dr + 6*dg*dg + db*db
	}
	return dr*dr + dg*dg + db*db
}

// Nearest returns the index of the entry closest to c along with the
// distance. When several entries are equally close the lowest index wins.
func (e *Expanded) Nearest(c bgr555.RGB, m Metric) (int, int) {
	best, bestDistance := 0, math.MaxInt32
	for i := range e {
		if d := m.Distance(c, e[i]); d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return best, bestDistance
}
