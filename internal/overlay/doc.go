// Package overlay draws the eased progress bar that runs along the bottom of
// every render.
package overlay
