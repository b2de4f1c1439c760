// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveUnconstrained(t *testing.T) {
	model := Model{
		Dim: 2, NEq: 0, NIn: 0,
		H: []float64{2, 0, 0, 2},
		G: []float64{-2, -4},
		A: []float64{}, B: []float64{},
		C: []float64{}, L: []float64{}, U: []float64{},
	}

	settings := DefaultSettings()
	s := NewSolver(settings)
	require.NoError(t, s.Setup(model, Execute, EqualityConstrainedInitialGuess))

	res := s.Solve()
	require.Equal(t, Solved, res.Status)
	require.InDelta(t, 1.0, res.X[0], 1e-6)
	require.InDelta(t, 2.0, res.X[1], 1e-6)
}

func TestSolveBoxConstrainedLowerBound(t *testing.T) {
	model := Model{
		Dim: 1, NEq: 0, NIn: 1,
		H: []float64{1},
		G: []float64{0},
		A: []float64{}, B: []float64{},
		C: []float64{1},
		L: []float64{1}, U: []float64{math.Inf(1)},
	}

	settings := DefaultSettings()
	s := NewSolver(settings)
	require.NoError(t, s.Setup(model, Execute, EqualityConstrainedInitialGuess))

	res := s.Solve()
	require.Equal(t, Solved, res.Status)
	require.InDelta(t, 1.0, res.X[0], 1e-4)
}

func TestSolveTwoSidedBoxConstrained(t *testing.T) {
	// minimize (x0-5)^2 + (x1+5)^2 s.t. -1<=x0<=1, -1<=x1<=1
	// -> x0 pins to its upper bound (z0>0), x1 pins to its lower bound
	// (z1<0), exercising both branches of classifyActiveSet.
	model := Model{
		Dim: 2, NEq: 0, NIn: 2,
		H: []float64{2, 0, 0, 2},
		G: []float64{-10, 10},
		A: []float64{}, B: []float64{},
		C: []float64{1, 0, 0, 1},
		L: []float64{-1, -1}, U: []float64{1, 1},
	}

	settings := DefaultSettings()
	s := NewSolver(settings)
	require.NoError(t, s.Setup(model, Execute, EqualityConstrainedInitialGuess))

	res := s.Solve()
	require.Equal(t, Solved, res.Status)
	require.InDelta(t, 1.0, res.X[0], 1e-4)
	require.InDelta(t, -1.0, res.X[1], 1e-4)
	require.Greater(t, res.Z[0], 0.0)
	require.Less(t, res.Z[1], 0.0)
}

func TestSolveEqualityConstrained(t *testing.T) {
	// minimize x0^2+x1^2 s.t. x0+x1=4 -> x0=x1=2
	model := Model{
		Dim: 2, NEq: 1, NIn: 0,
		H: []float64{2, 0, 0, 2},
		G: []float64{0, 0},
		A: []float64{1, 1}, B: []float64{4},
		C: []float64{}, L: []float64{}, U: []float64{},
	}

	settings := DefaultSettings()
	s := NewSolver(settings)
	require.NoError(t, s.Setup(model, Execute, EqualityConstrainedInitialGuess))

	res := s.Solve()
	require.Equal(t, Solved, res.Status)
	require.InDelta(t, 2.0, res.X[0], 1e-5)
	require.InDelta(t, 2.0, res.X[1], 1e-5)
}

func TestUpdateProximalParametersRhoTriggersRefactor(t *testing.T) {
	model := Model{
		Dim: 1, NEq: 0, NIn: 0,
		H: []float64{1}, G: []float64{0},
		A: []float64{}, B: []float64{},
		C: []float64{}, L: []float64{}, U: []float64{},
	}
	s := NewSolver(DefaultSettings())
	require.NoError(t, s.Setup(model, Execute, EqualityConstrainedInitialGuess))

	before := s.numRefactor
	rho := 0.5
	s.UpdateProximalParameters(ProximalOption{Rho: &rho})
	require.Greater(t, s.numRefactor, before)
	require.Equal(t, 0.5, s.rho)
}
