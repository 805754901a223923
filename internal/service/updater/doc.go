// Package updater drives an Ubuntu system-image update from recovery.
//
// The driver walks a small state machine (idle, preparing partitions,
// executing, succeeded or failed) around a single run of the external
// upgrader script, keeps the recovery UI in step with it, and reports an
// install result to the recovery menu. A test mode plays the same UI
// choreography without touching the system.
package updater
