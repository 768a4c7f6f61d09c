// Package unblock runs the unblock pipeline over the member directory.
//
// For each index key the Runner fetches the directory page, extracts the
// member form, plans the minimal set of block flags to clear, and hands the
// plan to the Submitter. Members whose flag does not stay cleared are passed
// to the bounce fallback. Every key, address, and failure ends up in the
// Report; nothing is dropped silently.
package unblock
