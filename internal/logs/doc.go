// Package logs reads the reelsmith log file for the "reelsmith logs" command.
//
// The console handler writes one header line per record followed by indented
// field lines, so the package works on entries rather than raw lines: an
// entry starts at every line that does not begin with whitespace. Last
// returns the newest entries with bounded memory, and Follow polls for new
// entries until its context is cancelled, restarting from the top when the
// file shrinks underneath it.
package logs
