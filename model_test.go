// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelValidateDimensionMismatch(t *testing.T) {
	m := Model{
		Dim: 2, NEq: 1, NIn: 1,
		H: make([]float64, 4),
		G: make([]float64, 1), // wrong: should be 2
		A: make([]float64, 2),
		B: make([]float64, 1),
		C: make([]float64, 2),
		L: []float64{0}, U: []float64{1},
	}
	err := m.validate()
	require.Error(t, err)
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestModelValidateInfeasibleBounds(t *testing.T) {
	m := Model{
		Dim: 1, NEq: 0, NIn: 1,
		H: []float64{1},
		G: []float64{0},
		A: []float64{},
		B: []float64{},
		C: []float64{1},
		L: []float64{2}, U: []float64{1},
	}
	require.Error(t, m.validate())
}

func TestModelValidateAccepts(t *testing.T) {
	m := Model{
		Dim: 2, NEq: 1, NIn: 1,
		H: make([]float64, 4),
		G: make([]float64, 2),
		A: make([]float64, 2),
		B: make([]float64, 1),
		C: make([]float64, 2),
		L: []float64{0}, U: []float64{1},
	}
	require.NoError(t, m.validate())
}

func TestCloneModelIsDeepCopy(t *testing.T) {
	m := Model{
		Dim: 1, NEq: 0, NIn: 0,
		H: []float64{1}, G: []float64{2},
		A: []float64{}, B: []float64{},
		C: []float64{}, L: []float64{}, U: []float64{},
	}
	c := cloneModel(m)
	c.H[0] = 99
	require.Equal(t, 1.0, m.H[0])
	require.Equal(t, 99.0, c.H[0])
}
