/*
Package observability exports Prometheus metrics for path resolution and
expression evaluation.

A Metrics value implements memory.Observer, so it can be passed to
memory.WithObserver directly. The engine facade also records evaluation
counts and latency through it.
*/
package observability
