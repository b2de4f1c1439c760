// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

// kktApply computes r := M v for the current regularized KKT matrix M
// (dense, logical size dim+neq+nActive), where v = [dx; dy; dzActive].
func kktApply(k *kktAssembler, model *Model, v, r []float64) {
	dim, neq := k.dim, k.neq
	na := k.nActive()
	dx := v[:dim]
	dy := v[dim : dim+neq]
	dzA := v[dim+neq : dim+neq+na]

	rx := r[:dim]
	ry := r[dim : dim+neq]
	rzA := r[dim+neq : dim+neq+na]

	dzero(rx)
	dsymv(dim, one, model.H, dx, zero, rx)
	daxpy(dim, k.rho, dx, rx)
	for i := 0; i < neq; i++ {
		daxpy(dim, dy[i], model.A[i*dim:i*dim+dim], rx)
	}
	for p, idx := range k.activeIdx {
		daxpy(dim, dzA[p], model.C[idx*dim:idx*dim+dim], rx)
	}

	for i := 0; i < neq; i++ {
		ry[i] = ddot(dim, model.A[i*dim:i*dim+dim], dx) - k.muEqDiag*dy[i]
	}
	for p, idx := range k.activeIdx {
		rzA[p] = ddot(dim, model.C[idx*dim:idx*dim+dim], dx) - k.muInDiag*dzA[p]
	}
}

// iterativeRefine solves M x = rhs for x via the cached LDLᵀ
// factorization, refining the solution up to nbRefine times and
// stopping early once two consecutive refinement steps fail to shrink
// the residual (stagnation). If the residual after refinement still
// exceeds epsRefact, the caller's model is refactorized once and the
// whole solve is retried a single time; a second failure is accepted as
// final (this never loops more than once, matching the "single-retry"
// fallback).
func iterativeRefine(k *kktAssembler, model *Model, rhs []float64, nbRefine int, epsRefact float64, retrying bool, rebuild func()) []float64 {
	n := len(rhs)
	sol := make([]float64, n)
	copy(sol, rhs)
	k.ldl.solveInPlace(sol)

	res := make([]float64, n)
	prevNorm := zero
	stagnant := 0
	for it := 0; it < nbRefine; it++ {
		kktApply(k, model, sol, res)
		for i := range res {
			res[i] = rhs[i] - res[i]
		}
		resNorm := dinfnorm(res)
		if resNorm <= epsRefact {
			return sol
		}
		if it > 0 && resNorm >= prevNorm {
			stagnant++
			if stagnant >= 2 {
				break
			}
		} else {
			stagnant = 0
		}
		prevNorm = resNorm
		k.ldl.solveInPlace(res)
		daxpy(n, one, res, sol)
	}

	kktApply(k, model, sol, res)
	for i := range res {
		res[i] = rhs[i] - res[i]
	}
	if dinfnorm(res) > epsRefact && !retrying && rebuild != nil {
		rebuild()
		return iterativeRefine(k, model, rhs, nbRefine, epsRefact, true, nil)
	}
	return sol
}
