// Package listing turns HTTP directory index pages into structured folder and
// file entries. It owns the data model shared by the cache, the navigator and
// the control API, the HTML tokenizer-based parser, and the URL resolver that
// computes absolute child URLs and the synthesized ".." parent entry.
// The parser never fails: malformed input degrades to a listing holding only
// the parent entry, so callers can always render something.
package listing
