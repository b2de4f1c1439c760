// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import (
	"math"
	"time"
)

// Solver holds everything needed to solve one dense QP: the problem
// data (both the caller's original and a Ruiz-equilibrated working
// copy), the proximal parameters, the incremental KKT factorization,
// and the current iterate. A Solver is not safe for concurrent Solve
// calls — create one Solver per goroutine, the same way the teacher's
// Optimizer/Workspace split requires a fresh Workspace per goroutine.
type Solver struct {
	settings Settings
	dim, neq, nin int

	model  Model // caller's data, unscaled, kept for Update/objective reporting
	scaled Model // Ruiz-equilibrated working copy, mutated in place
	ruiz   *ruizPrecond
	kkt    *kktAssembler

	rho, muEq, muIn float64

	x, y, z             []float64
	xPrev, yPrev, zPrev []float64

	activeUp, activeLow, wantActive []bool

	prevX, prevY, prevZ []float64
	hasPrev             bool

	numRefactor int
}

// NewSolver allocates a Solver with the given tuning. Call Setup before
// the first Solve.
func NewSolver(settings Settings) *Solver {
	return &Solver{settings: settings}
}

// Setup installs model as the problem to solve, computes (or skips) its
// Ruiz equilibration per preconditioner, and seeds the first iterate
// per initialGuess.
func (s *Solver) Setup(model Model, preconditioner PreconditionerStatus, initialGuess InitialGuessMode) error {
	if err := model.validate(); err != nil {
		return err
	}
	s.settings.InitialGuess = initialGuess
	s.dim, s.neq, s.nin = model.Dim, model.NEq, model.NIn
	s.model = cloneModel(model)
	s.scaled = cloneModel(model)

	s.ruiz = newRuizPrecond(s.dim, s.neq, s.nin)
	s.ruiz.scaleQPInPlace(&s.scaled, preconditioner, s.settings.RuizMaxIter, s.settings.RuizTolerance, s.settings.RuizEpsilon)

	s.rho, s.muEq, s.muIn = s.settings.RhoInit, s.settings.MuEqInit, s.settings.MuInInit
	s.kkt = newKKTAssembler(s.dim, s.neq, s.nin)
	s.kkt.refactorize(s.scaled.H, s.scaled.A, s.scaled.C, s.rho, s.muEq, s.muIn)

	s.x, s.y, s.z = make([]float64, s.dim), make([]float64, s.neq), make([]float64, s.nin)
	s.xPrev, s.yPrev, s.zPrev = make([]float64, s.dim), make([]float64, s.neq), make([]float64, s.nin)
	s.activeUp, s.activeLow, s.wantActive = make([]bool, s.nin), make([]bool, s.nin), make([]bool, s.nin)
	s.numRefactor = 0

	switch initialGuess {
	case EqualityConstrainedInitialGuess:
		s.seedEqualityConstrained()
	case WarmStartWithPreviousResult, ColdStartWithPreviousResult:
		if s.hasPrev {
			copy(s.x, s.prevX)
			copy(s.y, s.prevY)
			copy(s.z, s.prevZ)
			s.ruiz.scalePrimalInPlace(s.x)
			s.ruiz.scaleDualInPlaceEq(s.y)
			s.ruiz.scaleDualInPlaceIn(s.z)
		}
	}
	return nil
}

// seedEqualityConstrained solves the equality-only KKT system once
// (z = 0, no inequality rows active yet) and uses it as x₀, y₀.
func (s *Solver) seedEqualityConstrained() {
	n := s.dim + s.neq
	rhs := make([]float64, n)
	for j := 0; j < s.dim; j++ {
		rhs[j] = -s.scaled.G[j]
	}
	copy(rhs[s.dim:], s.scaled.B)
	sol := append([]float64(nil), rhs...)
	s.kkt.ldl.solveInPlace(sol)
	copy(s.x, sol[:s.dim])
	copy(s.y, sol[s.dim:s.dim+s.neq])
}

// Update replaces the non-nil fields of opt in the problem data and
// recomputes (or reapplies) the Ruiz equilibration per preconditioner.
func (s *Solver) Update(opt UpdateOption, preconditioner PreconditionerStatus) error {
	if opt.H != nil {
		s.model.H = opt.H
	}
	if opt.G != nil {
		s.model.G = opt.G
	}
	if opt.A != nil {
		s.model.A = opt.A
	}
	if opt.B != nil {
		s.model.B = opt.B
	}
	if opt.C != nil {
		s.model.C = opt.C
	}
	if opt.L != nil {
		s.model.L = opt.L
	}
	if opt.U != nil {
		s.model.U = opt.U
	}
	if err := s.model.validate(); err != nil {
		return err
	}
	s.scaled = cloneModel(s.model)
	s.ruiz.scaleQPInPlace(&s.scaled, preconditioner, s.settings.RuizMaxIter, s.settings.RuizTolerance, s.settings.RuizEpsilon)
	s.kkt.refactorize(s.scaled.H, s.scaled.A, s.scaled.C, s.rho, s.muEq, s.muIn)
	return nil
}

// WarmStart installs explicit x, y, z (in the caller's unscaled space)
// as the starting iterate for the next Solve.
func (s *Solver) WarmStart(opt WarmStartOption) {
	copy(s.x, opt.X)
	copy(s.y, opt.Y)
	copy(s.z, opt.Z)
	s.ruiz.scalePrimalInPlace(s.x)
	s.ruiz.scaleDualInPlaceEq(s.y)
	s.ruiz.scaleDualInPlaceIn(s.z)
}

// UpdateProximalParameters changes rho/muEq/muIn. A rho change forces a
// full refactorize (rho enters the head block, which insertAt/deleteAt
// never touch); a mu-only change is a cheap rank-one diagonal update.
func (s *Solver) UpdateProximalParameters(opt ProximalOption) {
	newRho, newMuEq, newMuIn := s.rho, s.muEq, s.muIn
	if opt.Rho != nil {
		newRho = *opt.Rho
	}
	if opt.MuEq != nil {
		newMuEq = *opt.MuEq
	}
	if opt.MuIn != nil {
		newMuIn = *opt.MuIn
	}
	if newRho != s.rho {
		s.rho = newRho
		s.muEq, s.muIn = newMuEq, newMuIn
		s.kkt.refactorize(s.scaled.H, s.scaled.A, s.scaled.C, s.rho, s.muEq, s.muIn)
		s.numRefactor++
		return
	}
	if newMuEq != s.muEq || newMuIn != s.muIn {
		s.kkt.muUpdate(newMuEq, newMuIn)
		s.muEq, s.muIn = newMuEq, newMuIn
	}
}

// unscaledIterate returns copies of x, y, z mapped back into the
// caller's original (unscaled) space, leaving the solver's working
// iterate untouched.
func (s *Solver) unscaledIterate() (x, y, z []float64) {
	x, y, z = make([]float64, s.dim), make([]float64, s.neq), make([]float64, s.nin)
	dcopy(s.dim, s.x, x)
	dcopy(s.neq, s.y, y)
	dcopy(s.nin, s.z, z)
	s.ruiz.unscalePrimalInPlace(x)
	s.ruiz.unscaleDualInPlaceEq(y)
	s.ruiz.unscaleDualInPlaceIn(z)
	return
}

// originalResiduals computes the BCL termination quantities in the
// caller's original (unscaled) space: rp/rd are the primal/dual
// residual norms, sp/sd are the scale references EpsRel multiplies
// against (spec §4.8(1)(2)).
func (s *Solver) originalResiduals() (rp, rd, sp, sd float64) {
	dim, neq, nin := s.dim, s.neq, s.nin
	m := &s.model
	x, y, z := s.unscaledIterate()

	for i := 0; i < neq; i++ {
		v := math.Abs(ddot(dim, m.A[i*dim:i*dim+dim], x) - m.B[i])
		rp = math.Max(rp, v)
	}
	for i := 0; i < nin; i++ {
		cx := ddot(dim, m.C[i*dim:i*dim+dim], x)
		rp = math.Max(rp, math.Max(zero, cx-m.U[i]))
		rp = math.Max(rp, math.Max(zero, m.L[i]-cx))
	}

	rdVec := make([]float64, dim)
	dsymv(dim, one, m.H, x, zero, rdVec)
	daxpy(dim, one, m.G, rdVec)
	for i := 0; i < neq; i++ {
		daxpy(dim, y[i], m.A[i*dim:i*dim+dim], rdVec)
	}
	for i := 0; i < nin; i++ {
		daxpy(dim, z[i], m.C[i*dim:i*dim+dim], rdVec)
	}
	rd = dinfnorm(rdVec)

	axNorm, cxNorm := zero, zero
	for i := 0; i < neq; i++ {
		axNorm = math.Max(axNorm, math.Abs(ddot(dim, m.A[i*dim:i*dim+dim], x)))
	}
	for i := 0; i < nin; i++ {
		cxNorm = math.Max(cxNorm, math.Abs(ddot(dim, m.C[i*dim:i*dim+dim], x)))
	}
	sp = math.Max(axNorm, cxNorm)
	sp = math.Max(sp, finiteInfNorm(m.B))
	sp = math.Max(sp, finiteInfNorm(m.U))
	sp = math.Max(sp, finiteInfNorm(m.L))

	hx := make([]float64, dim)
	dsymv(dim, one, m.H, x, zero, hx)
	aty := make([]float64, dim)
	if neq > 0 {
		dgemv(neq, dim, one, m.A, y, zero, aty, true)
	}
	ctz := make([]float64, dim)
	if nin > 0 {
		dgemv(nin, dim, one, m.C, z, zero, ctz, true)
	}
	sd = math.Max(dinfnorm(hx), dinfnorm(aty))
	sd = math.Max(sd, dinfnorm(ctz))
	sd = math.Max(sd, finiteInfNorm(m.G))

	return
}

func (s *Solver) primalResidualNorm() float64 {
	dim, neq, nin := s.dim, s.neq, s.nin
	worst := zero
	for i := 0; i < neq; i++ {
		v := math.Abs(ddot(dim, s.scaled.A[i*dim:i*dim+dim], s.x) - s.scaled.B[i])
		worst = math.Max(worst, v)
	}
	for i := 0; i < nin; i++ {
		cx := ddot(dim, s.scaled.C[i*dim:i*dim+dim], s.x)
		v := math.Max(zero, cx-s.scaled.U[i])
		v = math.Max(v, s.scaled.L[i]-cx)
		worst = math.Max(worst, v)
	}
	return worst
}

func (s *Solver) objectiveValue() float64 {
	x := append([]float64(nil), s.x...)
	s.ruiz.unscalePrimalInPlace(x)
	hx := make([]float64, s.dim)
	dsymv(s.dim, one, s.model.H, x, zero, hx)
	return 0.5*ddot(s.dim, x, hx) + ddot(s.dim, s.model.G, x)
}

// Solve runs the BCL outer loop to convergence or Settings.MaxIter,
// whichever comes first, and returns the result in the caller's
// original (unscaled) space. Follows the outer-iteration sequence of
// spec §4.8: original-space termination test, primal-feasible/
// dual-infeasible refactor, initial/correction step selection keyed on
// EpsIG, the GOOD/BAD BCL schedule update, and cold restart.
func (s *Solver) Solve() *Results {
	start := timeNow()
	log := &s.settings.Logger

	etaExtInit := math.Pow(s.settings.MuInInit, s.settings.AlphaBCL)
	etaExt := etaExtInit
	etaIn := one
	epsInMin := math.Min(s.settings.EpsAbs, 1e-9)
	prevRp := math.Inf(1)

	status := MaxIterReached
	totalInner := 0
	muUpdates := 0
	outer := 0

	for ; outer < s.settings.MaxIter; outer++ {
		rp, rd, sp, sd := s.originalResiduals()

		tolP := s.settings.EpsAbs + s.settings.EpsRel*sp
		tolD := s.settings.EpsAbs + s.settings.EpsRel*sd
		if log.enabled(LogIteration) {
			log.logf("bcl iter=%d primal=%g dual=%g muEq=%g muIn=%g\n", outer, rp, rd, s.muEq, s.muIn)
		}
		if rp <= tolP && rd <= tolD {
			status = Solved
			break
		}

		// primal-feasible, dual-infeasible: force a cheap-rho refactor so
		// the Newton system stops fighting a proximal term that is no
		// longer earning its keep.
		if rp <= tolP && s.rho != s.settings.RefactorRhoThreshold && rd >= s.settings.RefactorDualFeasibilityThreshold {
			s.rho = s.settings.RefactorRhoThreshold
			s.kkt.refactorize(s.scaled.H, s.scaled.A, s.scaled.C, s.rho, s.muEq, s.muIn)
			s.numRefactor++
		}

		dcopy(s.dim, s.x, s.xPrev)
		dcopy(s.neq, s.y, s.yPrev)
		dcopy(s.nin, s.z, s.zPrev)

		doInitial := rp < s.settings.EpsIG || s.nin == 0
		errIn := zero
		if doInitial {
			s.initialGuessStep()
			errIn = s.dualResidualNorm()
		}
		doCorrection := (!doInitial && s.nin > 0) || (doInitial && errIn >= etaIn && s.nin > 0)
		if doCorrection {
			totalInner += s.correctionGuessStep(etaIn)
		}

		if !isFinite(s.x) || !isFinite(s.y) || !isFinite(s.z) {
			status = NonFinite
			break
		}

		primalNormNew := s.primalResidualNorm()
		dualNormNew := s.dualResidualNorm()
		if primalNormNew <= etaExt {
			etaExt *= math.Pow(s.muIn, s.settings.BetaBCL)
			etaIn = math.Max(etaIn*s.muIn, epsInMin)
		} else {
			dcopy(s.neq, s.yPrev, s.y)
			dcopy(s.nin, s.zPrev, s.z)

			newMuEq := math.Max(s.muEq*s.settings.MuUpdateInvFactor, s.settings.MuMaxEqInv)
			newMuIn := math.Max(s.muIn*s.settings.MuUpdateInvFactor, s.settings.MuMaxInInv)
			s.kkt.muUpdate(newMuEq, newMuIn)
			s.muEq, s.muIn = newMuEq, newMuIn
			muUpdates++
			etaExt = etaExtInit * math.Pow(newMuIn, s.settings.AlphaBCL)
			etaIn = math.Max(newMuIn, epsInMin)
		}

		if primalNormNew/math.Max(prevRp, eps) >= one && dualNormNew/math.Max(prevRp, eps) >= one && s.muIn <= 1e-5 {
			s.rho = s.settings.RhoInit
			s.muEq, s.muIn = s.settings.ColdResetMuEq, s.settings.ColdResetMuIn
			s.kkt.refactorize(s.scaled.H, s.scaled.A, s.scaled.C, s.rho, s.muEq, s.muIn)
			s.numRefactor++
		}
		prevRp = primalNormNew
	}

	x, y, z := s.unscaledIterate()
	s.prevX, s.prevY, s.prevZ = x, y, z
	s.hasPrev = true

	res := &Results{
		X: x, Y: y, Z: z,
		ObjValue:     s.objectiveValue(),
		Status:       status,
		NumOuterIter: outer,
		NumInnerIter: totalInner,
		NumMuUpdates: muUpdates,
		NumRefactor:  s.numRefactor,
		RunTime:      timeSince(start),
	}
	if log.enabled(LogSummary) {
		log.logf("solve status=%s outer=%d inner=%d obj=%g\n", status, outer, totalInner, res.ObjValue)
	}
	return res
}

func isFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// timeNow/timeSince isolate the one place this package touches a clock,
// so the rest of the numeric core stays deterministic and easy to test.
func timeNow() time.Time              { return time.Now() }
func timeSince(t time.Time) time.Duration { return time.Since(t) }
