// Package navigator drives directory browsing: it decides whether a listing
// comes from the cache or the network, tracks the current location and the
// back-history, and exposes a snapshot for whatever presentation layer sits
// on top.
package navigator
