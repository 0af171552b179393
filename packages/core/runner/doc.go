// Package runner executes request templates.
//
// A Session owns one template and one auth config and runs the send
// pipeline over them:
//   - snapshot the active variables
//   - build the exchange (resolution, auth composition, dev rewrite)
//   - dispatch and normalize
//   - append local history
//   - persist history and synchronize state, concurrently
//
// A second Send on a session that is still sending fails with
// ErrSendInProgress. Separate sessions do not coordinate.
package runner
