// Package harness runs end-to-end scenarios against the reconciler and
// the statistics engine.
//
// # Scenario Format
//
// Scenarios are YAML files describing one or more session directories
// and the statistics expected once they are imported:
//
//	name: precedence
//	description: "High-fidelity sources win on conflict"
//	sessions:
//	  - runtime: { iid: "1", start: "1000", clktck: "100", sysbtime: "990" }
//	    logs:
//	      sysc.log:
//	        - "1000.25,5,3,1,100,0.25,100,0"
//	      file.log: ["1:/data/in"]
//	      taskstat.log: ["5,1,0,0,1000,2.5,/bin/cat"]
//	assertions:
//	  - type: aggregate
//	    table: syscall
//	    column: aux1
//	    op: sum
//	    where: { sysc: read }
//	    value: 100
//	  - type: process
//	    where: { pid: 5 }
//	    expect: { elapsed: 2.5, cmdline: /bin/cat }
//
// Every entry under logs gets a "# <name>" header line; raw entries are
// written verbatim, which is how scenarios exercise malformed logs.
//
// # Assertion Types
//
//   - aggregate: stats Aggregate equals value
//   - group: grouped sums equal groups
//   - throughput: per-key rates equal groups
//   - cdf: compressed CDF equals points
//   - procs: matching pids equal pids
//   - process: the single matching process record has the expect fields
//   - warnings: session import produced count warnings
//   - import_error: session import failed with error kind
//
// # Deterministic Testing
//
// Scenarios run against an in-memory store with fixed import ids
// (import-1, import-2, ...) and a fixed clock, so the canonical JSON
// snapshot of a run is byte-for-byte reproducible and can be compared
// against golden files with RunWithGolden.
package harness
