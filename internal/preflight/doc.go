// Package preflight provides readiness checks for the admin console and the
// local paths mmunblock depends on.
//
// The CLI "mmunblock preflight" command runs RunAll and prints one line per
// check. Checks never send the admin credential; the console check only
// probes the admin page and reports whether a login form is shown.
package preflight
