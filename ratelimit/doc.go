// Package ratelimit protects inbound API traffic with a fixed-window counter
// per caller.
//
// A caller's first request opens a window of Window length with a count of
// one. Requests inside the window increment the count until it reaches Limit;
// later requests are denied until the window ends, with a retry-after
// rounded up to whole seconds. The first request after the window ends opens
// a fresh window. A janitor goroutine periodically removes windows that have
// ended, so abandoned identifiers do not accumulate.
//
// State lives in one Limiter per process. Instances behind a load balancer
// do not share counts.
package ratelimit
