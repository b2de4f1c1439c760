// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import "time"

// Model holds the dense QP data
//
//	minimize   ½ xᵀHx + gᵀx
//	subject to Ax = b
//	           l ≤ Cx ≤ u
//
// H is symmetric positive semidefinite and stored fully (both triangles
// populated), row-major, dim×dim. A is neq×dim row-major, C is nin×dim
// row-major. l/u may contain ±Inf entries to express one-sided or absent
// inequality rows.
type Model struct {
	Dim, NEq, NIn int
	H             []float64
	G             []float64
	A             []float64
	B             []float64
	C             []float64
	L, U          []float64
}

// cloneModel returns a deep copy of m, so the solver's scaled working
// copy can be mutated freely without touching a caller's Model.
func cloneModel(m Model) Model {
	return Model{
		Dim: m.Dim, NEq: m.NEq, NIn: m.NIn,
		H: append([]float64(nil), m.H...),
		G: append([]float64(nil), m.G...),
		A: append([]float64(nil), m.A...),
		B: append([]float64(nil), m.B...),
		C: append([]float64(nil), m.C...),
		L: append([]float64(nil), m.L...),
		U: append([]float64(nil), m.U...),
	}
}

func (m *Model) validate() error {
	dim, neq, nin := m.Dim, m.NEq, m.NIn
	switch {
	case dim <= 0:
		return invalidInput("dimension must be greater than 0")
	case len(m.H) != dim*dim:
		return invalidInput("H must have dim*dim = %d entries, got %d", dim*dim, len(m.H))
	case len(m.G) != dim:
		return invalidInput("g must have dim = %d entries, got %d", dim, len(m.G))
	case len(m.A) != neq*dim:
		return invalidInput("A must have neq*dim = %d entries, got %d", neq*dim, len(m.A))
	case len(m.B) != neq:
		return invalidInput("b must have neq = %d entries, got %d", neq, len(m.B))
	case len(m.C) != nin*dim:
		return invalidInput("C must have nin*dim = %d entries, got %d", nin*dim, len(m.C))
	case len(m.L) != nin || len(m.U) != nin:
		return invalidInput("l and u must have nin = %d entries", nin)
	}
	for i := 0; i < nin; i++ {
		if m.L[i] > m.U[i] {
			return invalidInput("inequality row %d is infeasible: l[%d]=%g > u[%d]=%g", i, i, m.L[i], i, m.U[i])
		}
	}
	return nil
}

// InitialGuessMode selects how Setup seeds the first outer iterate.
type InitialGuessMode int

const (
	// NoInitialGuess starts from the all-zero iterate.
	NoInitialGuess InitialGuessMode = iota
	// EqualityConstrainedInitialGuess solves the equality-only KKT
	// system once and uses that as x₀, y₀, with z₀ = 0.
	EqualityConstrainedInitialGuess
	// WarmStartWithPreviousResult reuses the x, y, z from the previous
	// Solve as-is (after rescaling into the new equilibration); iteration
	// counters start from zero, as with ColdStartWithPreviousResult.
	WarmStartWithPreviousResult
	// ColdStartWithPreviousResult rescales the previous x, y, z into the
	// new equilibration as a starting point but resets all iteration
	// counters, as if this were a fresh solve that merely happens to
	// reuse a good guess.
	ColdStartWithPreviousResult
	// WarmStart uses the vectors supplied via WarmStart.
	WarmStart
)

// PreconditionerStatus selects how Setup/Update treat Ruiz equilibration.
type PreconditionerStatus int

const (
	// Execute (re)computes the Ruiz scaling from the current Model.
	Execute PreconditionerStatus = iota
	// KeepCurrent reuses whatever scaling is already stored.
	KeepCurrent
	// IdentityPrecond disables scaling: every scale/unscale is a no-op.
	IdentityPrecond
)

// Settings collects every tunable of the solver. Zero-value Settings is
// not directly usable; start from DefaultSettings.
type Settings struct {
	EpsAbs, EpsRel float64

	MaxIter               int
	MaxIterIn             int
	NbIterativeRefinement int
	EpsRefact             float64
	EpsIG                 float64

	AlphaBCL, BetaBCL                 float64
	MuUpdateFactor, MuUpdateInvFactor float64
	MuMaxEq, MuMaxIn                  float64
	MuMaxEqInv, MuMaxInInv            float64

	RefactorRhoThreshold              float64
	RefactorDualFeasibilityThreshold  float64
	ColdResetMuEq, ColdResetMuIn      float64

	RhoInit, MuEqInit, MuInInit float64

	InitialGuess   InitialGuessMode
	Preconditioner PreconditionerStatus

	RuizMaxIter   int
	RuizTolerance float64
	RuizEpsilon   float64

	Logger Logger
}

// DefaultSettings returns the solver's recommended tuning, following the
// proximal augmented-Lagrangian QP literature's usual defaults.
func DefaultSettings() Settings {
	return Settings{
		EpsAbs: 1e-9, EpsRel: 0,
		MaxIter: 10_000, MaxIterIn: 1_500,
		NbIterativeRefinement: 10, EpsRefact: 1e-6, EpsIG: 1e-2,
		AlphaBCL: 0.1, BetaBCL: 0.9,
		MuUpdateFactor: 10, MuUpdateInvFactor: 0.1,
		MuMaxEq: 1e9, MuMaxIn: 1e9, MuMaxEqInv: 1e-9, MuMaxInInv: 1e-9,
		RefactorRhoThreshold:             1e-7,
		RefactorDualFeasibilityThreshold: 1e-2,
		ColdResetMuEq:                    1. / 1.1, ColdResetMuIn: 1. / 1.1,
		RhoInit: 1e-6, MuEqInit: 1e-3, MuInInit: 1e-1,
		InitialGuess:   EqualityConstrainedInitialGuess,
		Preconditioner: Execute,
		RuizMaxIter:    25, RuizTolerance: 1e-3, RuizEpsilon: 1e-9,
	}
}

// UpdateOption carries a partial replacement of Model fields for Update.
// A nil slice means "keep the current value"; reassigning Dim/NEq/NIn is
// not supported by Update (use Setup to change problem shape).
type UpdateOption struct {
	H, G, A, B, C, L, U []float64
}

// ProximalOption carries a partial replacement of the proximal
// parameters for UpdateProximalParameters. A nil pointer means "keep".
type ProximalOption struct {
	Rho, MuEq, MuIn *float64
}

// WarmStartOption supplies the explicit x, y, z used when
// Settings.InitialGuess == WarmStart.
type WarmStartOption struct {
	X, Y, Z []float64
}

// Results is returned by Solve.
type Results struct {
	X, Y, Z  []float64
	ObjValue float64
	Status   Status

	NumOuterIter int
	NumInnerIter int
	NumMuUpdates int
	NumRefactor  int
	RunTime      time.Duration
}
