// Package preflight provides readiness checks for the filesystem paths and
// external executables reelsmith depends on.
//
// The "reelsmith doctor" command prints RunAll's results. The run command
// calls RunAll before starting a cycle and refuses to begin when a check
// fails, so a missing ffmpeg or an unwritable sessions directory surfaces
// before any segment is reserved.
package preflight
