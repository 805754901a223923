// Package stager installs the update command file that the driver hands to
// the upgrade script.
package stager
