// Package engine is the check-in submission orchestrator.
//
// An Engine accepts at most one committed check-in per person per site
// calendar day on top of a remote ledger that neither reads consistently nor
// rejects duplicate appends. Each call to InitiateSubmission runs one attempt
// through the states
//
//	Idle -> AcquiringContext -> CheckingDuplicate -> Submitting -> Reconciling -> Committed
//
// and may stop early in Rejected or Failed. Duplicates are refused by a
// durable local marker and a fresh remote read taken right before the
// append. Attempts for the same person never overlap inside one process;
// attempts from other processes are only detected after the fact and
// reported as conflicts.
//
// The engine also keeps the last remote view for presentation. It is
// refreshed in the background by Run and after every commit, and never used
// in place of the pre-submit read.
package engine
