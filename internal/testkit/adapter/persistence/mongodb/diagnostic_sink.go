package mongodb

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo/options"

	"mongo-testkit/internal/shared/logger"
)

var _ options.LogSink = (*DiagnosticSink)(nil)

// DiagnosticSink forwards driver log messages to the logger, dropping the ones
// the capability set marks as ignorable noise.
type DiagnosticSink struct {
	log     logger.Logger
	ignored map[string]struct{}
}

// NewDiagnosticSink creates a sink that drops messages equal to any of ignored.
func NewDiagnosticSink(log logger.Logger, ignored ...string) *DiagnosticSink {
	set := make(map[string]struct{}, len(ignored))
	for _, msg := range ignored {
		msg = strings.TrimSpace(msg)
		if msg != "" {
			set[msg] = struct{}{}
		}
	}
	return &DiagnosticSink{log: log.WithComponent("mongo_driver"), ignored: set}
}

// Ignores reports whether message is dropped.
func (s *DiagnosticSink) Ignores(message string) bool {
	_, ok := s.ignored[message]
	return ok
}

// Info logs a driver message. The driver reports info as level 0 and debug as 1.
func (s *DiagnosticSink) Info(level int, message string, keysAndValues ...interface{}) {
	if s.Ignores(message) {
		return
	}
	entry := s.log.WithFields(fieldsOf(keysAndValues))
	if level == 0 {
		entry.Info(message)
		return
	}
	entry.Debug(message)
}

// Error logs a driver error.
func (s *DiagnosticSink) Error(err error, message string, keysAndValues ...interface{}) {
	if s.Ignores(message) {
		return
	}
	fields := fieldsOf(keysAndValues)
	if err != nil {
		fields["error"] = err.Error()
	}
	s.log.WithFields(fields).Error(message)
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
