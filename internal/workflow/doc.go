// Package workflow drives one production cycle end to end.
//
// Producer keeps the segment library above its minimum-inventory watermark
// by running the extractor, then allocates a segment for a job, renders it,
// checks the output size floor, and records every transition in the job
// store. Consumption is a separate step so a segment is only destroyed once
// the rendered video has been delivered; abandoned or failed jobs return
// their segment to the pool.
//
// RunOnce wraps a single cycle in a timestamped session directory and prunes
// old sessions afterwards.
package workflow
