// Package console talks to a list's web admin console.
//
// Authenticate probes the admin page and logs in only when a login form is
// shown, returning a Session that carries the cookie jar, a rate limiter, and
// charset handling for every later request. Pages crawls the alphabetical
// member directory one index key at a time; fetch failures surface on the
// yielded page rather than stopping the crawl.
package console
