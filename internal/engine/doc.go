// Package engine is the entry point layer of tiermigrate.
//
// The engine wires the deployment's components together (legacy vault,
// record ledger, tier registry, migration orchestrator and light
// interceptor) and exposes every state-changing operation as a method.
//
// Each call:
//  1. takes a flow token from the context or generates one,
//  2. reads wall time once from the Clock,
//  3. runs inside a single store transaction,
//  4. appends the events it produced under the flow token.
//
// Any error rolls the whole call back, so a failed call leaves neither
// state nor events behind. The store serializes transactions, so the
// engine is safe for concurrent use and calls observe a total order.
package engine
