// Package ca manages trust anchors for mTLS client certificates: the
// registry of trusted certificate authorities, their revocation lists,
// certificate parsing, and extraction of client identity claims.
//
// The registry is fail-closed throughout: a fingerprint that was never
// registered is treated as revoked, and an unknown CA can never vouch
// for any trust level.
package ca
