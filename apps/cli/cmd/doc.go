// Package cmd implements the hitdesk CLI commands using Cobra.
//
// Available commands:
//   - send: Compose and send a request from a template file
//   - validate: Check template files against the template schema
//   - login, register, logout, whoami: Manage the backend session
//   - workspace, env, collection: Browse and switch workspace data
//   - history: List, show, summarize and clear executed requests
//   - init: Create a config file and an example template
//   - version: Show hitdesk version information
//
// Every send resolves variables against the active environment, applies
// auth, records history and synchronizes workspace state.
package cmd
