package ptl

import "golang.org/x/exp/constraints"

// maxOf returns the largest of vals, or the zero value of T if vals is
// empty. Grounded on catrate/ring.go's use of constraints.Ordered for its
// ring buffer's element type; here it resolves the supervisor's priority
// against every configured task's Priority (see Engine.maxTaskPriority).
func maxOf[T constraints.Ordered](vals ...T) T {
	var max T
	for i, v := range vals {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}
