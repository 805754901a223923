// Package shell runs command lines through the recovery shell and looks up
// running processes by executable name.
package shell
