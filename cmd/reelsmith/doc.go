// Package main hosts the reelsmith CLI entrypoint and command graph.
//
// Commands cover the whole asset pipeline: cutting raw footage into library
// segments, re-validating the library, rendering a narrated short from one
// segment, running a full production cycle, and inspecting job history and
// session folders. Configuration resolution, logger construction and the
// library lock live in commandContext so subcommands only describe behaviour.
//
// Any command that changes the segment library holds an exclusive file lock
// under state_dir for its duration; a second process gets an error instead of
// racing on the same segments.
package main
