// Package env handles environment variable sets and placeholder resolution.
//
// It provides functionality for:
//   - Immutable variable snapshots used for a single resolution pass
//   - Single-pass {{variable}} substitution that leaves unknown names intact
//   - Loading environments from .env, YAML or JSON files
//   - Detecting placeholders that are still unresolved after a pass
package env
