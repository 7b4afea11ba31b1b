//go:build raptordebug

package pareto

// Built with -tags raptordebug every Add re-checks the non-domination
// invariant and panics on violation.
const assertInvariants = true
