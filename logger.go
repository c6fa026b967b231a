package mutant

import "log"

// stdLogger writes through the standard library logger. It is the fallback
// for asynchronous faults when neither WithLogger nor WithErrorHandler was
// supplied, so they are never silently dropped.
type stdLogger struct{}

func (stdLogger) Debug(msg string, args ...any) { logf("DEBUG", msg, args) }
func (stdLogger) Info(msg string, args ...any)  { logf("INFO", msg, args) }
func (stdLogger) Error(msg string, args ...any) { logf("ERROR", msg, args) }

func logf(level, msg string, args []any) {
	if len(args) == 0 {
		log.Printf("mutant: %s %s", level, msg)
		return
	}
	log.Printf("mutant: %s %s %v", level, msg, args)
}

// StdLogger returns a Logger writing through the standard library logger.
func StdLogger() Logger {
	return stdLogger{}
}
