// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

// ldlStore is an incrementally maintained dense LDLᵀ factorization of a
// symmetric quasi-definite matrix: positive-definite leading block,
// negative-definite trailing blocks, never indefinite along the way a
// solver's active set grows and shrinks it. Quasi-definiteness is what
// lets every operation below skip pivoting entirely.
//
// Only two structural edits are ever needed by a KKT assembler built on
// top of this store: appending a row/column at the current tail
// (insertAt) and removing the current tail row/column (deleteAt). They
// are O(n²) and O(1) respectively; neither is a general mid-matrix
// Cholesky downdate.
type ldlStore struct {
	cap int
	n   int
	l   []float64 // cap×cap row-major, unit lower triangular in [0:n)×[0:n)
	d   []float64 // cap, diagonal in [0:n)
	v   []float64 // cap, scratch for insertAt/rankOneUpdate
}

func newLDLStore(capacity int) *ldlStore {
	return &ldlStore{
		cap: capacity,
		l:   make([]float64, capacity*capacity),
		d:   make([]float64, capacity),
		v:   make([]float64, capacity),
	}
}

func (s *ldlStore) reset() {
	s.n = 0
	dzero(s.l)
	dzero(s.d)
}

// factorize computes the LDLᵀ factorization of the dense symmetric n×n
// matrix mat (row-major, only the lower triangle is read) from scratch.
func (s *ldlStore) factorize(mat []float64, n int) {
	if n > s.cap {
		panic("ldl store capacity exceeded")
	}
	s.n = n
	for j := 0; j < n; j++ {
		sum := mat[j*n+j]
		lj := s.l[j*s.cap : j*s.cap+j]
		for k := 0; k < j; k++ {
			sum -= lj[k] * lj[k] * s.d[k]
		}
		s.d[j] = sum
		s.l[j*s.cap+j] = one
		for i := j + 1; i < n; i++ {
			sum := mat[i*n+j]
			li := s.l[i*s.cap : i*s.cap+j]
			for k := 0; k < j; k++ {
				sum -= li[k] * lj[k] * s.d[k]
			}
			s.l[i*s.cap+j] = sum / s.d[j]
		}
	}
}

// solveInPlace solves LDLᵀx = b for x, overwriting b with the solution.
func (s *ldlStore) solveInPlace(b []float64) {
	n := s.n
	// forward: L z = b
	for i := 0; i < n; i++ {
		li := s.l[i*s.cap : i*s.cap+i]
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= li[k] * b[k]
		}
		b[i] = sum
	}
	// diagonal: y = z / d
	for i := 0; i < n; i++ {
		b[i] /= s.d[i]
	}
	// backward: Lᵀ x = y
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for k := i + 1; k < n; k++ {
			sum -= s.l[k*s.cap+i] * b[k]
		}
		b[i] = sum
	}
}

// insertAt appends one row/column at the current tail (position s.n),
// growing the factorization from n to n+1. w holds the off-diagonal
// entries of the new row against the existing n rows; diag is the new
// row's own diagonal entry. This is the bordering technique and is only
// ever applied at the tail — no general mid-matrix insertion is
// supported, matching every call site in this solver's KKT assembler.
func (s *ldlStore) insertAt(w []float64, diag float64) {
	n := s.n
	if n >= s.cap {
		panic("ldl store capacity exceeded")
	}
	v := s.v[:n]
	// forward solve L v = w (unit lower triangular)
	for i := 0; i < n; i++ {
		li := s.l[i*s.cap : i*s.cap+i]
		sum := w[i]
		for k := 0; k < i; k++ {
			sum -= li[k] * v[k]
		}
		v[i] = sum
	}
	row := s.l[n*s.cap : n*s.cap+n]
	dd := diag
	for k := 0; k < n; k++ {
		lk := v[k] / s.d[k]
		row[k] = lk
		dd -= v[k] * lk
	}
	s.l[n*s.cap+n] = one
	s.d[n] = dd
	s.n = n + 1
}

// deleteAt removes the current tail row/column, shrinking the
// factorization from n to n-1. Because any leading principal submatrix
// of an LDLᵀ factorization is itself the LDLᵀ factorization of the
// corresponding submatrix, this requires no recomputation at all.
func (s *ldlStore) deleteAt() {
	if s.n == 0 {
		panic("ldl store is empty")
	}
	s.n--
}

// rankOneUpdate updates the factorization of M to that of M + sigma*w*wᵀ
// in place, where w has length s.n. Grounded on the teacher's compositeT
// rank-1 LDLT update (slsqp/tool.go), generalized from a fixed-size
// working array to this store's dense cap×cap buffer.
func (s *ldlStore) rankOneUpdate(w []float64, sigma float64) {
	n := s.n
	t := s.v[:n]
	copy(t, w[:n])
	for j := 0; j < n; j++ {
		dj := s.d[j]
		tj := t[j]
		newD := dj + sigma*tj*tj
		if newD == 0 {
			newD = eps
		}
		alpha := sigma * tj / newD
		gamma := dj / newD
		s.d[j] = newD
		sigma *= gamma
		for i := j + 1; i < n; i++ {
			lij := s.l[i*s.cap+j]
			ti := t[i]
			t[i] = ti - tj*lij
			s.l[i*s.cap+j] = lij + alpha*t[i]
		}
		if sigma == 0 {
			break
		}
	}
}

// reconstructedMatrix writes the dense n×n matrix LDLᵀ into dst
// (row-major, dst must have capacity n*n). Intended for tests only.
func (s *ldlStore) reconstructedMatrix(dst []float64) {
	n := s.n
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := zero
			kmax := j
			for k := 0; k <= kmax; k++ {
				lik := zero
				if k == i {
					lik = one
				} else if k < i {
					lik = s.l[i*s.cap+k]
				}
				ljk := zero
				if k == j {
					ljk = one
				} else if k < j {
					ljk = s.l[j*s.cap+k]
				}
				sum += lik * s.d[k] * ljk
			}
			dst[i*n+j] = sum
			dst[j*n+i] = sum
		}
	}
}
