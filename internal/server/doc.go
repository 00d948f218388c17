// Package server serves validation over HTTP with a chi router.
//
// Routes:
//
//	GET  /healthz              liveness and active rule set digest
//	GET  /v1/rules             active rule set summary
//	POST /v1/rules/reload      reload the rules file and swap it in
//	POST /v1/validate          validate one snapshot
//	POST /v1/validate/batch    validate an array of snapshots (?save=true persists the run)
package server
