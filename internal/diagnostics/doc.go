// Package diagnostics writes redacted artifacts of the pages and payloads a
// run handles, so a failed unblock can be inspected after the fact.
//
// Artifacts are written once under <dir>/<run id>/ as <seq>-<key>-<stage>.<ext>
// and never read back by the tool. The recorder never fails the run: write
// errors are logged and dropped.
package diagnostics
