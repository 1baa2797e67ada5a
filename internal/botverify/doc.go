// Package botverify verifies that a request claiming a well-known
// crawler identity is structurally plausible. For Googlebot the full
// check is user-agent pattern, membership in Google's published IPv4
// ranges, and forward-confirmed reverse DNS; all three must pass.
//
// Verification never fails a request with an error: DNS timeouts,
// resolution failures, and mismatches all fold into an unverified
// result, and a false privileged claim is treated as hostile by the
// classifier.
package botverify
