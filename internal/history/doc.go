// Package history maintains the ordered conversation transcript. It supports
// optimistic placeholder turns that are finalized on backend success or rolled
// back on failure, so the transcript never shows an orphaned, unanswered
// placeholder.
package history
