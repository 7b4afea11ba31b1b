//go:build !raptordebug

package pareto

const assertInvariants = false
