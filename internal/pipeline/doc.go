// Package pipeline composes classification, mTLS validation, and
// policy evaluation into the per-request decision flow. One call
// produces the final verdict plus the header sets the edge proxy
// forwards upstream and returns to the client.
package pipeline
