// Package schedule fires configured broadcasts on cron specs.
//
// It only triggers: every firing is handed to the broadcast queue, which
// enforces the one-run-per-tenant rule, so a firing that finds its tenant
// busy is skipped and logged.
package schedule
