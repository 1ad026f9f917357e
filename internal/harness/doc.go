// Package harness runs YAML migration scenarios against a real engine.
//
// Each scenario gets a fresh in-memory store, a manual clock starting at
// the scenario's start time and one flow token per step, so the audit log
// it produces is identical on every run. The harness:
//
//  1. Builds the deployment (the built-in default plus the scenario's
//     config overrides) and initializes the store
//  2. Executes the steps in order, checking expect_error codes and
//     expected amounts
//  3. Reads the full audit log back as the scenario's trace
//  4. Evaluates the assertions against the trace and the final state
//
// Traces are compared against golden files with RunWithGolden. Golden
// traces render every known address by its alias (alice, registry, ...)
// so they read like the scenario that produced them.
//
// Example scenario:
//
//	name: small-holder
//	description: A 250 position migrates into an immediate record
//	start: 1700000000
//	actors:
//	  alice: "0x0000000000000000000000000000000000000a01"
//	steps:
//	  - {op: fund, account: alice, amount: "250"}
//	  - {op: deposit, holder: alice, amount: "250", finish: 31536000}
//	  - {op: approve, holder: alice}
//	  - {op: finalize, caller: controller, target: registry}
//	  - {op: full_migrate, caller: alice, expect_amount: "250"}
//	assertions:
//	  - {type: holder, holder: alice, tier: 0, amount: "250", records: 1}
package harness
