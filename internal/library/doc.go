// Package library owns the pool of validated background segments.
//
// Pool allocates a uniformly random eligible segment to a job, guarantees a
// segment is never handed to two jobs at once, and deletes the segment only
// when the job's output has been confirmed by the downstream consumer. A job
// that is abandoned releases its reservation and the segment returns to the
// pool. Reservations live in memory; callers that share a library across
// processes serialize through the state lock file.
package library
