// Package ledger persists which catalog items have been fully processed.
//
// The ledger file is gzip-compressed JSON:
//
//	{"version":1,"ids":["42","43"]}
//
// There is one file per credential, named by PathFor. It is rewritten with
// an atomic rename after every recorded item and never deleted by snarf.
package ledger
