package monitoring

import "log"

// Logf receives every diagnostic line the service prints. Swap it with
// SetLogger to capture or silence output.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger installs f as Logf. A nil f discards everything.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf = f
}
