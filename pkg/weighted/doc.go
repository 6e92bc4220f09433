// Package weighted prices basket withdrawals against a weighted constant-function
// pool.
//
// Given reserves r, weights w and a deposit vector x, Solve finds the scalar Δ for
// which
//
//	∏ (r_i + x_i − Δ)^w_i = ∏ r_i^w_i
//
// holds, using arbitrary-precision decimal arithmetic. The iteration runs on the
// normalised variable α = 1 − Δ/L, L = min_i(r_i + x_i), for the Newton, Halley and
// Householder rules, and directly on Δ for the Chebyshev rule. Shapes with a single
// unknown balance are solved in closed form by SolveSingleOutput, SwapExactIn and
// ConstantProductDelta.
//
// Every call owns its precision context and solver state, so independent solves may
// run concurrently.
package weighted
