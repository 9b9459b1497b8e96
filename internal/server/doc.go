// Package server hosts the Fiber control API that lets a presentation layer
// drive browsing sessions over HTTP. It owns the request middleware chain
// (request IDs, panic recovery, access logging), the registry that binds each
// configured server to its navigation session, and the mapping from browsing
// errors to HTTP status codes. Diagnostics endpoints live in the routes
// subpackage and are attached by the caller.
package server
