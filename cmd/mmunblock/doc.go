// Command mmunblock clears administrative delivery blocks from a list's
// members through the web admin console.
//
// The run command crawls the member directory one index key at a time,
// reports every blocked member, and in --live mode submits the member form
// with only those flags cleared. Members whose flag does not stay cleared
// are handed to the bounce fallback. Dry-run is the default.
package main
