// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import (
	"math"
	"testing"
)

func denseSymmetricSample() (n int, m []float64) {
	n = 4
	m = []float64{
		4, 1, 0, 1,
		1, 5, 1, 0,
		0, 1, 6, 2,
		1, 0, 2, 7,
	}
	return
}

func maxAbsDiff(a, b []float64) float64 {
	worst := zero
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > worst {
			worst = d
		}
	}
	return worst
}

func TestLDLFactorizeReconstructs(t *testing.T) {
	n, m := denseSymmetricSample()
	s := newLDLStore(n)
	s.factorize(m, n)

	got := make([]float64, n*n)
	s.reconstructedMatrix(got)

	if d := maxAbsDiff(got, m); d > 1e-9 {
		t.Fatalf("reconstructed matrix differs from input by %g\n got=%v\n want=%v", d, got, m)
	}
}

func TestLDLSolveInPlace(t *testing.T) {
	n, m := denseSymmetricSample()
	s := newLDLStore(n)
	s.factorize(m, n)

	x := []float64{1, 2, 3, 4}
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		b[i] = zero
	}
	dsymv(n, one, m, x, zero, b)

	s.solveInPlace(b)
	if d := maxAbsDiff(b, x); d > 1e-8 {
		t.Fatalf("solve did not recover x: got %v want %v (diff %g)", b, x, d)
	}
}

func TestLDLInsertAtMatchesFullFactorize(t *testing.T) {
	n, m := denseSymmetricSample()
	s := newLDLStore(n + 1)
	s.factorize(m, n)

	w := []float64{2, 0, 1, 3}
	diag := 9.0

	full := make([]float64, (n+1)*(n+1))
	for i := 0; i < n; i++ {
		copy(full[i*(n+1):i*(n+1)+n], m[i*n:i*n+n])
		full[i*(n+1)+n] = w[i]
		full[n*(n+1)+i] = w[i]
	}
	full[n*(n+1)+n] = diag

	s.insertAt(w, diag)

	got := make([]float64, (n + 1) * (n + 1))
	s.reconstructedMatrix(got)
	if d := maxAbsDiff(got, full); d > 1e-8 {
		t.Fatalf("insertAt mismatch: diff %g\n got=%v\n want=%v", d, got, full)
	}
}

func TestLDLDeleteAtTruncates(t *testing.T) {
	n, m := denseSymmetricSample()
	s := newLDLStore(n)
	s.factorize(m, n)
	s.deleteAt()
	s.deleteAt()

	if s.n != n-2 {
		t.Fatalf("expected n=%d after two deletes, got %d", n-2, s.n)
	}

	sub := make([]float64, (n-2)*(n-2))
	for i := 0; i < n-2; i++ {
		copy(sub[i*(n-2):i*(n-2)+(n-2)], m[i*n:i*n+(n-2)])
	}
	got := make([]float64, (n-2)*(n-2))
	s.reconstructedMatrix(got)
	if d := maxAbsDiff(got, sub); d > 1e-8 {
		t.Fatalf("deleteAt did not truncate to leading submatrix: diff %g", d)
	}
}

func TestLDLRankOneUpdateMatchesFullFactorize(t *testing.T) {
	n, m := denseSymmetricSample()
	s := newLDLStore(n)
	s.factorize(m, n)

	w := []float64{1, -1, 2, 0.5}
	sigma := 0.75

	updated := append([]float64(nil), m...)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			updated[i*n+j] += sigma * w[i] * w[j]
		}
	}

	s.rankOneUpdate(w, sigma)

	gotRecon := make([]float64, n*n)
	s.reconstructedMatrix(gotRecon)

	if d := maxAbsDiff(gotRecon, updated); d > 1e-6 {
		t.Fatalf("rank-one update diverged from M + sigma*w*wᵀ: diff %g", d)
	}
}
