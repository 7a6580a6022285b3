// Package monitoring provides the pipeline's diagnostic logger and its
// Prometheus counters. Both stay out of the algorithmic hot paths: stages
// log per frame or per track, never per cell.
package monitoring

import "log"

// Logf emits a pipeline diagnostic line. Stages call it per frame or per
// track; the default sink is the standard library logger.
var Logf = log.Printf

func nopLogf(string, ...interface{}) {}

// SetLogger redirects diagnostics to f. A nil f mutes them, which tests use
// to keep output quiet.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = nopLogf
	}
	Logf = f
}
