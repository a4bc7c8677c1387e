// Package segmenter converts raw footage into fixed-length library segments.
//
// Each unprocessed source (a .mp4, .mov or .mkv file whose name is not in the
// processed ledger) is optionally trimmed of its opening and closing seconds,
// then cut into floor(duration/segment) stream-copied pieces named
// <id>_seg<n>.mp4. Pieces below the size floor or rejected by the quality
// validator are deleted. Once every piece has been attempted the source is
// recorded in the ledger and deleted together with its trimmed copy.
package segmenter
