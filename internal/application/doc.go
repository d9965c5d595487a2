// Package application provides application initialization and dependency wiring.
// It builds the readiness tracker, handlers, router, and HTTP server from an
// already resolved config.Config, keeping the main package focused on CLI
// parsing and orchestration.
package application
