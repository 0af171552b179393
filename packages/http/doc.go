// Package http turns request templates into executed, normalized exchanges.
//
// The pipeline pieces live here:
//   - Template, Headers and AuthConfig, the authored request
//   - ComposeAuth, which merges auth into the header sequence idempotently
//   - Builder, which resolves placeholders and produces an Exchange
//   - Rewriter, the local development proxy rewrite
//   - Client, which dispatches an Exchange and measures latency
//   - Normalize, which converts the outcome into a Result
package http
