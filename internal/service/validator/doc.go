// Package validator checks a sparse image by importing it once and
// releasing it, reporting failures as exit statuses for the simgtest tool.
package validator
