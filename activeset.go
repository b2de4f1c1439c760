// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import "math"

// classifyActiveSet updates activeUp/activeLow from the current (x, z)
// using the semismooth-Newton projection rule: inequality i is pinned
// to its upper bound when z_i + μin(Cx_i - u_i) > 0, to its lower bound
// when z_i + μin(Cx_i - l_i) < 0, and left inactive (implicit z_i = 0)
// otherwise.
func (s *Solver) classifyActiveSet() {
	dim := s.dim
	for i := 0; i < s.nin; i++ {
		row := s.scaled.C[i*dim : i*dim+dim]
		cx := ddot(dim, row, s.x)
		pu := s.z[i] + s.muIn*(cx-s.scaled.U[i])
		pl := s.z[i] + s.muIn*(cx-s.scaled.L[i])
		switch {
		case !math.IsInf(s.scaled.U[i], 1) && pu > 0:
			s.activeUp[i], s.activeLow[i] = true, false
		case !math.IsInf(s.scaled.L[i], -1) && pl < 0:
			s.activeUp[i], s.activeLow[i] = false, true
		default:
			s.activeUp[i], s.activeLow[i] = false, false
			s.z[i] = 0
		}
		s.wantActive[i] = s.activeUp[i] || s.activeLow[i]
	}
	s.kkt.setActiveSet(s.wantActive, s.scaled.C)
}

// stationarityResidual writes the current primal-dual stationarity
// residual F(x,y,z) into rd (dim), ry (neq), rzA (nActive):
//
//	F_x = Hx + g + Aᵀy + Σ Cᵢᵀzᵢ (active i) + ρ(x - xPrev)
//	F_y = Ax - b - μeq(y - yPrev)
//	F_zᵢ = Cᵢx - sᵢ - μin(zᵢ - zPrevᵢ), sᵢ = u_i or l_i per active bound
func (s *Solver) stationarityResidual(rd, ry, rzA []float64) {
	dim, neq := s.dim, s.neq
	dzero(rd)
	dsymv(dim, one, s.scaled.H, s.x, zero, rd)
	daxpy(dim, one, s.scaled.G, rd)
	for i := 0; i < neq; i++ {
		daxpy(dim, s.y[i], s.scaled.A[i*dim:i*dim+dim], rd)
	}
	for _, idx := range s.kkt.activeIdx {
		daxpy(dim, s.z[idx], s.scaled.C[idx*dim:idx*dim+dim], rd)
	}
	for j := 0; j < dim; j++ {
		rd[j] += s.rho * (s.x[j] - s.xPrev[j])
	}

	for i := 0; i < neq; i++ {
		ry[i] = ddot(dim, s.scaled.A[i*dim:i*dim+dim], s.x) - s.scaled.B[i] - s.muEq*(s.y[i]-s.yPrev[i])
	}

	for p, idx := range s.kkt.activeIdx {
		cx := ddot(dim, s.scaled.C[idx*dim:idx*dim+dim], s.x)
		bound := s.scaled.U[idx]
		if s.activeLow[idx] {
			bound = s.scaled.L[idx]
		}
		rzA[p] = cx - bound - s.muIn*(s.z[idx]-s.zPrev[idx])
	}
}

// newtonDirection solves one Newton step of the stationarity system and
// returns dx, dy, dzActive.
func (s *Solver) newtonDirection() (dx, dy, dzA []float64) {
	na := s.kkt.nActive()
	n := s.dim + s.neq + na
	rd := make([]float64, s.dim)
	ry := make([]float64, s.neq)
	rzA := make([]float64, na)
	s.stationarityResidual(rd, ry, rzA)

	rhs := make([]float64, n)
	for j := 0; j < s.dim; j++ {
		rhs[j] = -rd[j]
	}
	for i := 0; i < s.neq; i++ {
		rhs[s.dim+i] = -ry[i]
	}
	for p := 0; p < na; p++ {
		rhs[s.dim+s.neq+p] = -rzA[p]
	}

	rebuild := func() {
		s.numRefactor++
		s.kkt.refactorize(s.scaled.H, s.scaled.A, s.scaled.C, s.rho, s.muEq, s.muIn)
	}
	sol := iterativeRefine(s.kkt, &s.scaled, rhs, s.settings.NbIterativeRefinement, s.settings.EpsRefact, false, rebuild)

	dx = sol[:s.dim]
	dy = sol[s.dim : s.dim+s.neq]
	dzA = sol[s.dim+s.neq : s.dim+s.neq+na]
	return
}

// exactLineSearch finds the largest alpha in (0, 1] such that applying
// alpha*(dx, dy, dzActive) never crosses an active/inactive-set
// breakpoint: an active multiplier changing sign, or an inactive row
// reaching one of its bounds. No merit function is evaluated; the
// result is the nearest such breakpoint (or 1), not the minimizer of
// the piecewise-quadratic merit over alpha.
func (s *Solver) exactLineSearch(dx, dy, dzA []float64) float64 {
	alpha := one
	dim := s.dim
	for i := 0; i < s.nin; i++ {
		row := s.scaled.C[i*dim : i*dim+dim]
		cx := ddot(dim, row, s.x)
		cdx := ddot(dim, row, dx)
		switch {
		case s.activeUp[i] || s.activeLow[i]:
			pos := s.kkt.kktPos[i]
			if pos < 0 {
				continue
			}
			m, dm := s.z[i], dzA[pos]
			if dm != 0 && m/dm < 0 {
				if bp := -m / dm; bp > 0 && bp < alpha {
					alpha = bp
				}
			}
		default:
			if !math.IsInf(s.scaled.U[i], 1) && cdx > 0 {
				if bp := (s.scaled.U[i] - cx) / cdx; bp > 0 && bp < alpha {
					alpha = bp
				}
			}
			if !math.IsInf(s.scaled.L[i], -1) && cdx < 0 {
				if bp := (s.scaled.L[i] - cx) / cdx; bp > 0 && bp < alpha {
					alpha = bp
				}
			}
		}
	}
	return alpha
}

// applyStep moves the iterate by alpha*(dx, dy, dzActive).
func (s *Solver) applyStep(alpha float64, dx, dy, dzA []float64) {
	daxpy(s.dim, alpha, dx, s.x)
	daxpy(s.neq, alpha, dy, s.y)
	for p, idx := range s.kkt.activeIdx {
		s.z[idx] += alpha * dzA[p]
	}
}

// dualResidualNorm returns max(‖F_x‖∞, ‖F_y‖∞, ‖F_z‖∞) over the active
// rows for the current iterate, used as the inner-loop convergence test
// against etaIn.
func (s *Solver) dualResidualNorm() float64 {
	na := s.kkt.nActive()
	rd := make([]float64, s.dim)
	ry := make([]float64, s.neq)
	rzA := make([]float64, na)
	s.stationarityResidual(rd, ry, rzA)
	return math.Max(dinfnorm(rd), math.Max(dinfnorm(ry), dinfnorm(rzA)))
}

// initialGuessStep runs in every outer iteration that takes the initial
// guess branch: it classifies the active set from the current (x, z),
// then takes one Newton step scaled by exactLineSearch — no inner
// iteration, so it lands close to the solution immediately when the
// predicted active set is already correct.
func (s *Solver) initialGuessStep() {
	s.classifyActiveSet()
	dx, dy, dzA := s.newtonDirection()
	alpha := s.exactLineSearch(dx, dy, dzA)
	s.applyStep(alpha, dx, dy, dzA)
	s.classifyActiveSet()
}

// correctionGuessStep runs the semismooth-Newton inner loop to drive the
// stationarity residual below etaIn, reclassifying the active set after
// every step. Returns the number of inner (Newton) iterations taken.
func (s *Solver) correctionGuessStep(etaIn float64) int {
	done := 0
	for iters := 0; iters < s.settings.MaxIterIn; iters++ {
		dx, dy, dzA := s.newtonDirection()
		alpha := s.exactLineSearch(dx, dy, dzA)
		s.applyStep(alpha, dx, dy, dzA)
		s.classifyActiveSet()
		done++
		if s.dualResidualNorm() <= etaIn {
			break
		}
	}
	return done
}
