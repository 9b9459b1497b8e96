// Package fetch retrieves directory index pages over HTTP. It owns the shared
// pooled transport, classifies every failure into a small FetchError taxonomy
// and retries transient failures according to a Backoff policy before handing
// the raw body to the parser.
package fetch
