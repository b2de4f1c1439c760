// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModel() Model {
	return Model{
		Dim: 2, NEq: 1, NIn: 1,
		H: []float64{4, 0, 0, 100},
		G: []float64{1, -2},
		A: []float64{1, 1},
		B: []float64{3},
		C: []float64{1, 0},
		L: []float64{0}, U: []float64{10},
	}
}

func TestRuizIdentityLeavesModelUnchanged(t *testing.T) {
	m := sampleModel()
	want := cloneModel(m)

	r := newRuizPrecond(m.Dim, m.NEq, m.NIn)
	r.scaleQPInPlace(&m, IdentityPrecond, 25, 1e-3, 1e-9)

	assert.Equal(t, want.H, m.H)
	assert.Equal(t, want.G, m.G)
	assert.Equal(t, want.A, m.A)
	assert.Equal(t, want.B, m.B)
}

func TestRuizScalePrimalRoundTrip(t *testing.T) {
	m := sampleModel()
	r := newRuizPrecond(m.Dim, m.NEq, m.NIn)
	r.scaleQPInPlace(&m, Execute, 25, 1e-3, 1e-9)

	x := []float64{1.5, -2.5}
	want := append([]float64(nil), x...)

	r.scalePrimalInPlace(x)
	r.unscalePrimalInPlace(x)

	for i := range want {
		require.InDelta(t, want[i], x[i], 1e-9)
	}
}

func TestRuizScaleDualEqRoundTrip(t *testing.T) {
	m := sampleModel()
	r := newRuizPrecond(m.Dim, m.NEq, m.NIn)
	r.scaleQPInPlace(&m, Execute, 25, 1e-3, 1e-9)

	y := []float64{0.75}
	want := append([]float64(nil), y...)

	r.scaleDualInPlaceEq(y)
	r.unscaleDualInPlaceEq(y)

	for i := range want {
		require.InDelta(t, want[i], y[i], 1e-9)
	}
}

func TestRuizScaleDualInRoundTrip(t *testing.T) {
	m := sampleModel()
	r := newRuizPrecond(m.Dim, m.NEq, m.NIn)
	r.scaleQPInPlace(&m, Execute, 25, 1e-3, 1e-9)

	z := []float64{-1.25}
	want := append([]float64(nil), z...)

	r.scaleDualInPlaceIn(z)
	r.unscaleDualInPlaceIn(z)

	for i := range want {
		require.InDelta(t, want[i], z[i], 1e-9)
	}
}

func TestRuizExecuteReducesColumnSpread(t *testing.T) {
	m := sampleModel()
	r := newRuizPrecond(m.Dim, m.NEq, m.NIn)
	r.scaleQPInPlace(&m, Execute, 25, 1e-3, 1e-9)

	// after equilibration the two diagonal H entries should be much
	// closer to each other than the original 4 vs 100.
	ratio := m.H[0*2+0] / m.H[1*2+1]
	if ratio < 0 {
		ratio = -ratio
	}
	if ratio > 25 {
		t.Fatalf("expected equilibration to shrink the column spread, got ratio %v (original 4/100=0.04)", ratio)
	}
}
