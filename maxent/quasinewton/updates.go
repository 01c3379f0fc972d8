package quasinewton

import (
	"gonum.org/v1/gonum/floats"
)

// updateInfo stores the last m curvature pairs (S_i = x_{k+1} - x_k,
// Y_i = g_{k+1} - g_k) and rho_i = 1/<S_i, Y_i> in a ring buffer: the head
// index marks the oldest pair and logical slot i lives at physical slot
// (head+i) % m, making eviction O(1) instead of shifting. The two-loop
// recursion consumes pairs oldest-to-newest via the logical order.
type updateInfo struct {
	m    int // capacity
	k    int // pairs currently stored, <= m
	head int // physical slot of the oldest pair

	s     [][]float64
	y     [][]float64
	rho   []float64
	alpha []float64 // two-loop scratch
}

func newUpdateInfo(m, dimension int) *updateInfo {
	u := &updateInfo{
		m:     m,
		s:     make([][]float64, m),
		y:     make([][]float64, m),
		rho:   make([]float64, m),
		alpha: make([]float64, m),
	}
	for i := 0; i < m; i++ {
		u.s[i] = make([]float64, dimension)
		u.y[i] = make([]float64, dimension)
	}
	return u
}

// slot maps a logical index (0 = oldest) to its physical ring slot.
func (u *updateInfo) slot(logical int) int {
	return (u.head + logical) % u.m
}

// update appends the curvature pair of the just-completed step, evicting
// the oldest pair when the buffer is full.
func (u *updateInfo) update(lsr *LineSearchResult) {
	var idx int
	if u.k < u.m {
		idx = u.slot(u.k)
		u.k++
	} else {
		idx = u.head // overwrite the oldest pair
		u.head = (u.head + 1) % u.m
	}
	floats.SubTo(u.s[idx], lsr.NextPoint, lsr.CurrPoint)
	floats.SubTo(u.y[idx], lsr.GradAtNext, lsr.GradAtCurr)
	u.rho[idx] = 1.0 / floats.Dot(u.s[idx], u.y[idx])
}

// computeDirection transforms direction, which holds the (pseudo-)gradient
// on entry, into the L-BFGS descent direction -H·g via the standard
// two-loop recursion over the stored pairs, newest-to-oldest backward then
// oldest-to-newest forward, negating at the end.
func (u *updateInfo) computeDirection(direction []float64) {
	for i := u.k - 1; i >= 0; i-- {
		idx := u.slot(i)
		u.alpha[idx] = u.rho[idx] * floats.Dot(u.s[idx], direction)
		floats.AddScaled(direction, -u.alpha[idx], u.y[idx])
	}
	for i := 0; i < u.k; i++ {
		idx := u.slot(i)
		beta := u.rho[idx] * floats.Dot(u.y[idx], direction)
		floats.AddScaled(direction, u.alpha[idx]-beta, u.s[idx])
	}
	floats.Scale(-1, direction)
}
