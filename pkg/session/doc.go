// Package session persists per-working-directory continuation records for
// the assistant CLIs. Persistence is a convenience feature, not a
// correctness requirement: every operation degrades silently on I/O or
// parse failure so the bridge stays usable even with an unwritable
// sessions directory.
package session
