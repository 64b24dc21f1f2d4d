// Package server exposes a bitsieve Service over HTTP.
//
// Routes:
//
//	POST /select          multipart part "bitset" (or a raw zlib body) plus
//	                      q, fl, timeAllowed, wt and order parameters
//	POST /admin/refresh   publish the newest committed generation
//	GET  /healthz         liveness and current generation
//	GET  /metrics         Prometheus metrics, when a gatherer is configured
package server
