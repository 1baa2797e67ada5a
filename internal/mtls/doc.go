// Package mtls validates client certificates against the CA registry
// and a caller-supplied validation policy, producing an identity claim
// with structured diagnostics.
//
// Two assurance tiers exist. The full path parses both certificates
// and runs the complete ten-step check. The header fast-path trusts
// the edge proxy's handshake verdict and the identity material it
// forwarded; it still re-checks revocation but takes trust level and
// permissions at face value, so its results carry a distinct, lower
// assurance marker and must never be conflated with full validation.
package mtls
