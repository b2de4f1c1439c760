// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import (
	"math"
	"testing"
)

func TestDaxpyDdot(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{5, 4, 3, 2, 1}
	daxpy(5, 2, x, y)
	want := []float64{7, 8, 9, 10, 11}
	for i := range want {
		if y[i] != want[i] {
			t.Fatalf("daxpy[%d] = %v, want %v", i, y[i], want[i])
		}
	}

	dot := ddot(5, x, []float64{1, 1, 1, 1, 1})
	if dot != 15 {
		t.Fatalf("ddot = %v, want 15", dot)
	}
}

func TestDscalDnrm2(t *testing.T) {
	x := []float64{3, 4}
	dscal(2, 2, x)
	if x[0] != 6 || x[1] != 8 {
		t.Fatalf("dscal = %v, want [6 8]", x)
	}
	if n := dnrm2(2, x); math.Abs(n-10) > 1e-12 {
		t.Fatalf("dnrm2 = %v, want 10", n)
	}
}

func TestDgemvDsymv(t *testing.T) {
	// 2x2 diagonal symmetric matrix
	h := []float64{2, 0, 0, 3}
	x := []float64{1, 1}
	y := make([]float64, 2)
	dsymv(2, 1, h, x, 0, y)
	if y[0] != 2 || y[1] != 3 {
		t.Fatalf("dsymv = %v, want [2 3]", y)
	}

	a := []float64{1, 2, 3, 4, 5, 6} // 2x3
	xv := []float64{1, 1, 1}
	yv := make([]float64, 2)
	dgemv(2, 3, 1, a, xv, 0, yv, false)
	if yv[0] != 6 || yv[1] != 15 {
		t.Fatalf("dgemv = %v, want [6 15]", yv)
	}

	yt := make([]float64, 3)
	xr := []float64{1, 1}
	dgemv(2, 3, 1, a, xr, 0, yt, true)
	want := []float64{5, 7, 9}
	for i := range want {
		if yt[i] != want[i] {
			t.Fatalf("dgemv transposed = %v, want %v", yt, want)
		}
	}
}

func TestDinfnorm(t *testing.T) {
	if n := dinfnorm([]float64{-1, 3, -5, 2}); n != 5 {
		t.Fatalf("dinfnorm = %v, want 5", n)
	}
}
