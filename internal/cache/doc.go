// Package cache implements the two-tier directory listing cache. A file-backed
// key/value byte store persists one JSON record per content-hash key using
// temp file + rename writes guarded by a cross-process flock, while a memory
// tier keeps hot listings. ListingCache composes both tiers read-through /
// write-through, applies the TTL on every lookup, and reports read-only stats
// for operator tooling. Navigation depends on this package to avoid refetching
// directories without duplicating tier or expiry logic.
package cache
