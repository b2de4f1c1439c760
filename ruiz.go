// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import "math"

// ruizPrecond is a diagonal Ruiz equilibration preconditioner for the
// stacked problem data [H Aᵀ Cᵀ; A; C]. It holds, per call to
// scaleQPInPlace, the accumulated column scaling delta (dim entries, one
// per variable), the row scalings deltaEq/deltaIn (one per equality and
// inequality constraint), and the scalar cost scaling c. Every
// scale/unscale method below mirrors the identity preconditioner's
// method set one-for-one, just non-trivially.
type ruizPrecond struct {
	dim, neq, nin int
	delta         []float64
	deltaEq       []float64
	deltaIn       []float64
	c             float64
}

func newRuizPrecond(dim, neq, nin int) *ruizPrecond {
	r := &ruizPrecond{dim: dim, neq: neq, nin: nin}
	r.setIdentity()
	return r
}

func (r *ruizPrecond) setIdentity() {
	r.delta = ones(r.dim)
	r.deltaEq = ones(r.neq)
	r.deltaIn = ones(r.nin)
	r.c = one
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = one
	}
	return v
}

func colInfNorm(mat []float64, rows, cols, j int) float64 {
	m := zero
	for i := 0; i < rows; i++ {
		if a := math.Abs(mat[i*cols+j]); a > m {
			m = a
		}
	}
	return m
}

func rowInfNorm(row []float64) float64 {
	return dinfnorm(row)
}

// scaleQPInPlace (re)computes, or reuses, the Ruiz equilibration for
// model and applies it to H, g, A, b, C, l, u in place, according to
// status: Execute recomputes from scratch (an iterative sweep of at most
// maxIter rounds, converged once every column/row scaling factor is
// within tol of 1), KeepCurrent reapplies the scaling already held by r
// (used after Update changes problem data but the caller wants the old
// scaling kept), and IdentityPrecond disables scaling entirely.
func (r *ruizPrecond) scaleQPInPlace(m *Model, status PreconditionerStatus, maxIter int, tol, epsilon float64) {
	dim, neq, nin := m.Dim, m.NEq, m.NIn
	switch status {
	case IdentityPrecond:
		r.dim, r.neq, r.nin = dim, neq, nin
		r.setIdentity()
		return
	case KeepCurrent:
		r.applyCached(m)
		return
	}

	r.dim, r.neq, r.nin = dim, neq, nin
	r.setIdentity()

	gamma := make([]float64, dim)
	de := make([]float64, neq)
	di := make([]float64, nin)

	for iter := 0; iter < maxIter; iter++ {
		maxDev := zero
		for j := 0; j < dim; j++ {
			n := colInfNorm(m.H, dim, dim, j)
			n = math.Max(n, colInfNorm(m.A, neq, dim, j))
			n = math.Max(n, colInfNorm(m.C, nin, dim, j))
			n = math.Max(n, epsilon)
			gamma[j] = one / math.Sqrt(n)
			if d := math.Abs(one - n); d > maxDev {
				maxDev = d
			}
		}
		for i := 0; i < neq; i++ {
			n := math.Max(rowInfNorm(m.A[i*dim:i*dim+dim]), epsilon)
			de[i] = one / math.Sqrt(n)
			if d := math.Abs(one - n); d > maxDev {
				maxDev = d
			}
		}
		for i := 0; i < nin; i++ {
			n := math.Max(rowInfNorm(m.C[i*dim:i*dim+dim]), epsilon)
			di[i] = one / math.Sqrt(n)
			if d := math.Abs(one - n); d > maxDev {
				maxDev = d
			}
		}

		scaleSymmetricCols(m.H, dim, gamma)
		scaleRowsCols(m.A, neq, dim, de, gamma)
		scaleRowsCols(m.C, nin, dim, di, gamma)

		for j := 0; j < dim; j++ {
			r.delta[j] *= gamma[j]
		}
		for i := 0; i < neq; i++ {
			r.deltaEq[i] *= de[i]
		}
		for i := 0; i < nin; i++ {
			r.deltaIn[i] *= di[i]
		}

		// cost scaling: normalize the average column norm of H towards 1.
		avg := zero
		for j := 0; j < dim; j++ {
			avg += colInfNorm(m.H, dim, dim, j)
		}
		if dim > 0 {
			avg /= float64(dim)
		}
		avg = math.Max(avg, epsilon)
		cNew := one / math.Max(avg, one)
		dscal(dim*dim, cNew, m.H)
		dscal(dim, cNew, m.G)
		r.c *= cNew

		if maxDev < tol {
			break
		}
	}

	for j := 0; j < dim; j++ {
		m.G[j] *= r.delta[j] * r.c
	}
	for i := 0; i < neq; i++ {
		m.B[i] *= r.deltaEq[i]
	}
	for i := 0; i < nin; i++ {
		if !math.IsInf(m.L[i], -1) {
			m.L[i] *= r.deltaIn[i]
		}
		if !math.IsInf(m.U[i], 1) {
			m.U[i] *= r.deltaIn[i]
		}
	}
}

// applyCached reapplies the currently held scaling to (presumably
// freshly updated) model data, used by PreconditionerStatus KeepCurrent.
func (r *ruizPrecond) applyCached(m *Model) {
	dim, neq, nin := r.dim, r.neq, r.nin
	scaleSymmetricCols(m.H, dim, r.delta)
	dscal(dim*dim, r.c, m.H)
	scaleRowsCols(m.A, neq, dim, r.deltaEq, r.delta)
	scaleRowsCols(m.C, nin, dim, r.deltaIn, r.delta)
	for j := 0; j < dim; j++ {
		m.G[j] *= r.delta[j] * r.c
	}
	for i := 0; i < neq; i++ {
		m.B[i] *= r.deltaEq[i]
	}
	for i := 0; i < nin; i++ {
		if !math.IsInf(m.L[i], -1) {
			m.L[i] *= r.deltaIn[i]
		}
		if !math.IsInf(m.U[i], 1) {
			m.U[i] *= r.deltaIn[i]
		}
	}
}

// scaleSymmetricCols applies H := diag(s) H diag(s) to a dense dim×dim
// row-major symmetric matrix.
func scaleSymmetricCols(h []float64, dim int, s []float64) {
	for i := 0; i < dim; i++ {
		row := h[i*dim : i*dim+dim]
		for j := 0; j < dim; j++ {
			row[j] *= s[i] * s[j]
		}
	}
}

// scaleRowsCols applies M := diag(rowScale) M diag(colScale) to a dense
// rows×cols row-major matrix.
func scaleRowsCols(m []float64, rows, cols int, rowScale, colScale []float64) {
	for i := 0; i < rows; i++ {
		row := m[i*cols : i*cols+cols]
		ri := rowScale[i]
		for j := 0; j < cols; j++ {
			row[j] *= ri * colScale[j]
		}
	}
}

// scalePrimalInPlace maps an unscaled x into scaled space: x := Delta⁻¹ x.
// H, A, C, g are scaled as M' = c·Delta·M·Delta (forward, multiply), which
// makes x = Delta·x' the relation between unscaled and scaled primal
// vectors, so going the other way divides.
func (r *ruizPrecond) scalePrimalInPlace(x []float64) {
	for i, d := range r.delta {
		x[i] /= d
	}
}

// unscalePrimalInPlace maps a scaled x back to unscaled space: x := Delta x'.
func (r *ruizPrecond) unscalePrimalInPlace(x []float64) {
	for i, d := range r.delta {
		x[i] *= d
	}
}

// scaleDualInPlaceEq maps unscaled equality multipliers into scaled
// space: y := c * E⁻¹ y (E is the equality row scaling).
func (r *ruizPrecond) scaleDualInPlaceEq(y []float64) {
	for i, e := range r.deltaEq {
		y[i] *= r.c / e
	}
}

func (r *ruizPrecond) unscaleDualInPlaceEq(y []float64) {
	for i, e := range r.deltaEq {
		y[i] *= e / r.c
	}
}

func (r *ruizPrecond) scaleDualInPlaceIn(z []float64) {
	for i, f := range r.deltaIn {
		z[i] *= r.c / f
	}
}

func (r *ruizPrecond) unscaleDualInPlaceIn(z []float64) {
	for i, f := range r.deltaIn {
		z[i] *= f / r.c
	}
}

// scalePrimalResidualInPlace maps an equality-residual-shaped vector
// (length neq, reused for the nin-shaped inequality residual by the
// caller with the other helper below) into scaled space: r := E r.
func (r *ruizPrecond) scalePrimalResidualEqInPlace(v []float64) {
	for i, e := range r.deltaEq {
		v[i] *= e
	}
}

func (r *ruizPrecond) scalePrimalResidualInInPlace(v []float64) {
	for i, f := range r.deltaIn {
		v[i] *= f
	}
}

func (r *ruizPrecond) unscalePrimalResidualEqInPlace(v []float64) {
	for i, e := range r.deltaEq {
		v[i] /= e
	}
}

func (r *ruizPrecond) unscalePrimalResidualInInPlace(v []float64) {
	for i, f := range r.deltaIn {
		v[i] /= f
	}
}

// scaleDualResidualInPlace maps a dual-residual-shaped vector (length
// dim) into scaled space: r := c * Delta r.
func (r *ruizPrecond) scaleDualResidualInPlace(v []float64) {
	for i, d := range r.delta {
		v[i] *= r.c * d
	}
}

func (r *ruizPrecond) unscaleDualResidualInPlace(v []float64) {
	for i, d := range r.delta {
		v[i] /= r.c * d
	}
}
