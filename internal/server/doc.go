// Package server exposes the decision core over HTTP for edge proxy
// callouts: one subrequest per inbound request, answered with the
// verdict and the headers to forward.
package server
