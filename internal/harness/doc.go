// Package harness runs conformance scenarios against the validation
// engine.
//
// # Scenario Format
//
//	name: device-mismatch
//	description: "Handset on the order differs from the line's device"
//	rules: ../rules/telecom.yaml     # relative to the scenario file
//	run_id: fixed-run                # optional
//	snapshots:
//	  - subscriber: "12218071145"
//	    orders:
//	      - {id: O1, type: Change Device, created_at: 2025-01-01T10:00:00Z,
//	         fields: {newDeviceType: smartphone}}
//	    assets:
//	      - {id: L1, type: line}
//	      - {id: D1, type: device, parent_id: L1, fields: {deviceType: tablet}}
//	expect:
//	  - subscriber: "12218071145"
//	    status: fail
//	    outcomes: {device-matches-order: fail}
//	    reasons: {device-matches-order: "hierarchy has"}
//	summary: {failed: 1}
//
// Expectations are subset matches: only the fields given are checked.
//
// # Deterministic Runs
//
// Scenarios run through the real engine with a fixed run id and a step
// clock starting at testutil.Epoch, so golden snapshots (see RunWithGolden)
// are byte-stable across runs.
package harness
