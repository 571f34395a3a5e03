// Package harness runs analysis scenarios as executable regression tests.
//
// A scenario names an encounter file, analyses it with the job's module
// catalog and checks the report against a list of assertions. Reports can
// also be snapshotted as golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: wildfire_drift
//	description: "What this scenario validates"
//	encounter: ../encounters/mch_dummy.yaml
//	data: extra.cue            # optional static data overlay
//	job: MCH                   # optional, defaults to the encounter's job
//	assertions:
//	  - type: finding
//	    module: wildfire
//	    severity: medium
//	  - type: module_status
//	    module: heat
//	    status: ok
//	  - type: summary
//	    module: wildfire
//	    expect: { bad: 1 }
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - finding: a visible finding exists for module (optionally at severity)
//   - no_finding: module has no visible finding
//   - finding_count: exactly count visible findings, optionally per module
//   - module_status: module finished with status
//   - checklist: a rule exists and (optionally) passed or failed
//   - summary: the module summary contains the expected fields (subset match)
//   - stored_findings: the run saved to the history store has count findings
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store with a fixed
// run id, so stored runs and reports are identical across executions and
// can be compared with golden files.
package harness
