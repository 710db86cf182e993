// Package application provides application initialization and dependency wiring.
// It chooses the storage backend, builds the stamp solver, handlers, routers
// and the HTTP server, keeping the main package focused on CLI parsing and
// orchestration.
package application
