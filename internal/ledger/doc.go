// Package ledger persists the identities of raw videos that have already been
// segmented so a source is never processed twice, even across restarts or
// concurrent extractor processes.
package ledger
