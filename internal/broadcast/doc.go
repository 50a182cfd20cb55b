// Package broadcast fans a photo, video or post-link message out to every
// recipient of a tenant and keeps the recipient directory's reachability
// flags in line with what the transport reports.
//
// A run goes through a fixed pipeline:
//
//	permission gate -> recipient fetch -> media probe (photo only)
//	  -> sequential sends with pacing -> reachability updates -> summary
//
// Runs are sequential per tenant and at most one run per tenant is active
// or queued at a time. A single failing recipient never stops the run; only
// an invalid request, a permission denial, a busy tenant or a failing
// directory query does.
package broadcast
