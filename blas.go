// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import "math"

// daxpy performs dy += da*dx elementwise, unit stride only.
func daxpy(n int, da float64, dx []float64, dy []float64) {
	if n <= 0 || da == 0.0 {
		return
	}
	m := uint(n % 4)
	if m > uint(len(dx)) || m > uint(len(dy)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		dy[i] += da * dx[i]
	}
	if n < 4 {
		return
	}
	for i := m; i < uint(n); i += 4 {
		x := dx[i : i+4 : i+4]
		y := dy[i : i+4 : i+4]
		y[0] += da * x[0]
		y[1] += da * x[1]
		y[2] += da * x[2]
		y[3] += da * x[3]
	}
}

// ddot computes the dot product of two vectors, unit stride only.
func ddot(n int, dx []float64, dy []float64) (dot float64) {
	if n <= 0 {
		return 0.0
	}
	m := uint(n % 5)
	if m > uint(len(dx)) || m > uint(len(dy)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		dot += dx[i] * dy[i]
	}
	if n < 5 {
		return dot
	}
	for i := m; i < uint(n); i += 5 {
		x := dx[i : i+5 : i+5]
		y := dy[i : i+5 : i+5]
		dot += x[0]*y[0] + x[1]*y[1] + x[2]*y[2] + x[3]*y[3] + x[4]*y[4]
	}
	return dot
}

// dcopy copies dx into dy, unit stride only.
func dcopy(n int, dx []float64, dy []float64) {
	if n <= 0 {
		return
	}
	copy(dy[:n], dx[:n])
}

// dscal scales dx by da in place, unit stride only.
func dscal(n int, da float64, dx []float64) {
	if n <= 0 {
		return
	}
	m := uint(n % 5)
	if m > uint(len(dx)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		dx[i] *= da
	}
	if n < 5 {
		return
	}
	for i := m; i < uint(n); i += 5 {
		d := dx[i : i+5 : i+5]
		d[0] *= da
		d[1] *= da
		d[2] *= da
		d[3] *= da
		d[4] *= da
	}
}

// dnrm2 computes the Euclidean norm of x, unit stride only.
func dnrm2(n int, x []float64) float64 {
	if n < 1 {
		return zero
	}
	if uint(n) > uint(len(x)) {
		panic("bound check error")
	}
	if n == 1 {
		return math.Abs(x[0])
	}
	scale := zero
	ssq := one
	for i := 0; i < n; i++ {
		if absxi := math.Abs(x[i]); absxi > 0 {
			if scale < absxi {
				sxi := scale / absxi
				ssq = 1 + ssq*sxi*sxi
				scale = absxi
			} else {
				sxi := absxi / scale
				ssq += sxi * sxi
			}
		}
	}
	return scale * math.Sqrt(ssq)
}

// dzero fills x with zero.
func dzero(dx []float64) {
	n := uint(len(dx))
	m := n % 5
	for i := uint(0); i < m; i++ {
		dx[i] = zero
	}
	if n < 5 {
		return
	}
	for i := m; i < n; i += 5 {
		d := dx[i : i+5 : i+5]
		d[0] = zero
		d[1] = zero
		d[2] = zero
		d[3] = zero
		d[4] = zero
	}
}

// dinfnorm returns the infinity norm (max absolute value) of x.
func dinfnorm(x []float64) float64 {
	m := zero
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// finiteInfNorm is dinfnorm but skips ±Inf entries, for sentinel-bound
// vectors (l/u) where an absent one-sided constraint is encoded as Inf
// and must not swamp a residual-scale comparison.
func finiteInfNorm(x []float64) float64 {
	m := zero
	for _, v := range x {
		if math.IsInf(v, 0) {
			continue
		}
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// dgemv computes y = alpha*M*x + beta*y for a dense row-major rows×cols
// matrix M. When trans is true it computes y = alpha*Mᵀ*x + beta*y instead.
func dgemv(rows, cols int, alpha float64, m []float64, x []float64, beta float64, y []float64, trans bool) {
	if !trans {
		if len(m) < rows*cols || len(x) < cols || len(y) < rows {
			panic("bound check error")
		}
		for i := 0; i < rows; i++ {
			row := m[i*cols : i*cols+cols]
			s := ddot(cols, row, x)
			y[i] = alpha*s + beta*y[i]
		}
		return
	}
	if len(m) < rows*cols || len(x) < rows || len(y) < cols {
		panic("bound check error")
	}
	if beta != one {
		dscal(cols, beta, y)
	}
	for i := 0; i < rows; i++ {
		xi := alpha * x[i]
		if xi == 0 {
			continue
		}
		row := m[i*cols : i*cols+cols]
		daxpy(cols, xi, row, y)
	}
}

// dsymv computes y = alpha*H*x + beta*y for a dense symmetric dim×dim
// matrix H stored as a full row-major array. Both triangles must be
// populated (as Model requires): H is read here as a general dense matrix.
func dsymv(dim int, alpha float64, h []float64, x []float64, beta float64, y []float64) {
	dgemv(dim, dim, alpha, h, x, beta, y, false)
}
