// Package actions runs user actions that talk to the cluster on a single
// worker goroutine. Every action gets an id and its own cancellable
// context; callers cancel it with Cancel and collect the result with Wait.
package actions
