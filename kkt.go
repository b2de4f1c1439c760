// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

// kktAssembler owns the regularized KKT matrix
//
//	[ H+ρI   Aᵀ    Cₐᵀ   ]
//	[ A     -μeqI  0     ]
//	[ Cₐ     0    -μinI  ]
//
// where Cₐ is the block of currently-active inequality rows, and its
// incremental LDLᵀ factorization (ldlStore). The "head" (the H/A block,
// size dim+neq) is rebuilt wholesale on refactorize; the active
// inequality rows are a variable-size tail maintained by insertAt /
// deleteAt. Because every real call site only ever needs to add or
// remove inequality rows relative to the current tail, general
// mid-matrix row changes are expressed here as pop-to-point-then-
// reinsert sequences built purely from ldlStore's tail primitives.
type kktAssembler struct {
	dim, neq, nin int
	ldl           *ldlStore

	activeIdx []int // constraint index held at each tail position
	kktPos    []int // nin -> position in activeIdx, or -1 if inactive

	muEqDiag, muInDiag float64
	rho                float64
}

func newKKTAssembler(dim, neq, nin int) *kktAssembler {
	return &kktAssembler{
		dim: dim, neq: neq, nin: nin,
		ldl:       newLDLStore(dim + neq + nin),
		activeIdx: make([]int, 0, nin),
		kktPos:    fillInt(nin, -1),
	}
}

func fillInt(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// buildHead writes H+ρI, Aᵀ, A, -μeqI into dst, a dense (dim+neq)² row
// major buffer.
func buildHead(dst []float64, dim, neq int, h, a []float64, rho, muEqDiag float64) {
	n := dim + neq
	dzero(dst)
	for i := 0; i < dim; i++ {
		copy(dst[i*n:i*n+dim], h[i*dim:i*dim+dim])
		dst[i*n+i] += rho
	}
	for i := 0; i < neq; i++ {
		row := a[i*dim : i*dim+dim]
		for j := 0; j < dim; j++ {
			dst[(dim+i)*n+j] = row[j]
			dst[j*n+(dim+i)] = row[j]
		}
		dst[(dim+i)*n+(dim+i)] = -muEqDiag
	}
}

// refactorize rebuilds the head block from scratch and reinserts every
// currently-active inequality row, using the supplied (rho, μeq, μin).
// This is the live path of iterative refinement's refactor-on-drift
// fallback and of any change to rho.
func (k *kktAssembler) refactorize(h, a, c []float64, rho, muEqDiag, muInDiag float64) {
	k.rho, k.muEqDiag, k.muInDiag = rho, muEqDiag, muInDiag
	n := k.dim + k.neq
	head := make([]float64, n*n)
	buildHead(head, k.dim, k.neq, h, a, rho, muEqDiag)
	k.ldl.factorize(head, n)

	active := append([]int(nil), k.activeIdx...)
	k.activeIdx = k.activeIdx[:0]
	for i := range k.kktPos {
		k.kktPos[i] = -1
	}
	for _, idx := range active {
		k.appendActive(idx, c)
	}
}

// appendActive inserts inequality row idx at the current tail.
func (k *kktAssembler) appendActive(idx int, c []float64) {
	n := k.ldl.n
	w := make([]float64, n)
	copy(w[:k.dim], c[idx*k.dim:idx*k.dim+k.dim])
	k.ldl.insertAt(w, -k.muInDiag)
	k.kktPos[idx] = len(k.activeIdx)
	k.activeIdx = append(k.activeIdx, idx)
}

// removeActive removes inequality row idx, which need not be at the
// tail: every row above it is popped and reinserted around the removal,
// using only ldlStore's tail primitives.
func (k *kktAssembler) removeActive(idx int, c []float64) {
	pos := k.kktPos[idx]
	if pos < 0 {
		return
	}
	above := append([]int(nil), k.activeIdx[pos+1:]...)
	for i := len(k.activeIdx) - 1; i >= pos; i-- {
		k.ldl.deleteAt()
		k.kktPos[k.activeIdx[i]] = -1
	}
	k.activeIdx = k.activeIdx[:pos]
	for _, j := range above {
		k.appendActive(j, c)
	}
}

// setActiveSet reconciles the currently active rows with wantActive
// (indexed by constraint, true meaning the row should be in the KKT
// tail). Rows to drop are removed tail-first (highest position first)
// so every individual removal is itself a tail/near-tail operation.
func (k *kktAssembler) setActiveSet(wantActive []bool, c []float64) {
	toRemove := make([]int, 0)
	for _, idx := range k.activeIdx {
		if !wantActive[idx] {
			toRemove = append(toRemove, idx)
		}
	}
	for i := len(toRemove) - 1; i >= 0; i-- {
		k.removeActive(toRemove[i], c)
	}
	for idx, want := range wantActive {
		if want && k.kktPos[idx] < 0 {
			k.appendActive(idx, c)
		}
	}
}

// muUpdate changes μeq/μin without rebuilding the factorization: each
// diagonal block entry moves by a fixed delta, which is exactly a
// rank-one update with a unit vector.
func (k *kktAssembler) muUpdate(newMuEqDiag, newMuInDiag float64) {
	n := k.ldl.n
	e := make([]float64, n)
	if newMuEqDiag != k.muEqDiag {
		delta := k.muEqDiag - newMuEqDiag
		for i := 0; i < k.neq; i++ {
			dzero(e)
			e[k.dim+i] = one
			k.ldl.rankOneUpdate(e, delta)
		}
		k.muEqDiag = newMuEqDiag
	}
	if newMuInDiag != k.muInDiag {
		delta := k.muInDiag - newMuInDiag
		for _, idx := range k.activeIdx {
			dzero(e)
			e[k.dim+k.neq+k.kktPos[idx]] = one
			k.ldl.rankOneUpdate(e, delta)
		}
		k.muInDiag = newMuInDiag
	}
}

// nActive returns the number of active inequality rows.
func (k *kktAssembler) nActive() int { return len(k.activeIdx) }

// dimTotal returns the current factorization size, dim+neq+nActive.
func (k *kktAssembler) dimTotal() int { return k.ldl.n }
