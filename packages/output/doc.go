// Package output renders send outcomes and workspace data.
//
// The console formatter prints colored, human-readable text with a body,
// headers or raw view of the response. The JSON formatter prints the
// execution result and listings as machine-readable JSON.
package output
