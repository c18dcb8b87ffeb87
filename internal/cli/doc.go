// Package cli implements the checkin command tree.
//
// Commands
//
//	submit <person>   submit today's check-in (--status, --location, --lat/--lon)
//	status <person>   tell whether the person may still check in today
//	snapshot          today's counts, missing roster members and check-ins (--json)
//	month [YYYY-MM]   status counts over one month
//	watch             refresh in the background and print today's attendance
//	gc                purge old idempotency markers
//
// Every command accepts the configuration flags registered by
// config.RegisterFlags, including --config/-c for a JSON file.
package cli
