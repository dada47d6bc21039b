// Package monitoring carries the process-wide diagnostic logger.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// but may be replaced by SetLogger; tests redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var verbose = false

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose enables Debugf output. Sample-level diagnostics are far too
// chatty for normal runs.
func SetVerbose(v bool) { verbose = v }

// Debugf logs only when verbose mode is on.
func Debugf(format string, v ...interface{}) {
	if verbose {
		Logf(format, v...)
	}
}
