// Package recovery describes the recovery UI as a small capability
// interface and provides a console implementation for running the update
// driver outside the graphical recovery.
package recovery
