// Package fallback clears bounce disablement for members whose block flag
// did not stay cleared after a member-form submission.
//
// The Controller walks one address at a time through
// Idle -> BounceCheck -> BounceClearSubmitted -> Verified | Exhausted, with a
// bounded number of attempts and a backoff between them.
package fallback
