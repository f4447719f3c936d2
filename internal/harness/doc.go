// Package harness runs YAML scenarios against a real engine.Session.
//
// # Scenario Format
//
//	name: library_then_program
//	description: "A program links against a library registered earlier"
//	toolchain: fake          # fake (default) or system
//	print_infos: false
//	vin:
//	  notifications: 2       # input requests per program run
//	input: [alpha, beta]     # lines answering those requests
//	cells:
//	  - code: |
//	      //%file:foo.cpp
//	      helper() { return 1; }
//	    expect:
//	      status: ok
//	  - code: |
//	      #include "foo.h"
//	      helper
//	    expect:
//	      status: ok
//	      exit_code: 1
//	      stdout_contains: ["..."]
//	assertions:
//	  - type: library
//	    name: foo
//	    binary: true
//	  - type: link_set
//	    cell: 2
//	    names: [foo]
//
// Cells are raw cell text: directives are parsed exactly as the REPL does.
//
// # Toolchains
//
// The fake toolchain treats sources as POSIX shell (see testutil), so
// scenarios run anywhere a shell does. The system toolchain invokes g++
// and is skipped by the package tests when g++ is missing.
//
// # Assertion Types
//
//   - library: a registry record exists, optionally with header/binary set and given deps
//   - registry_size: the registry holds exactly count records
//   - link_set: the journaled link set of the cell-th cell (1-based)
//   - input_supplied: the payloads delivered to the virtual-input service
//   - cycles: the registry reports exactly count dependency cycles
//
// # Deterministic Testing
//
// Each scenario runs in a fresh session with sequential ids, an in-memory
// journal and a fresh artifact directory whose path is replaced by
// $ARTIFACTS in transcripts, so transcripts compare byte for byte against
// golden files.
package harness
