// Package staging manages per-run session directories. Each run writes into
// sessions/YYYYMMDD_HHMMSS, every job gets its own story_<id> folder inside,
// and only the newest sessions are retained.
package staging
