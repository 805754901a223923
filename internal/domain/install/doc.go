// Package install contains the core types of the update flow: the result
// codes handed back to the recovery menu, the UI background and progress
// styles the driver switches between, and the upgrader command line.
package install
