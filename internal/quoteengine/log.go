package quoteengine

import "go.uber.org/zap"

// callFields returns the structured zap fields attached to every log line
// emitted for a given call, so overlapping concurrent invocations of the
// engine can be told apart in logs (§5 "Shared resources").
func callFields(callID string, extra ...zap.Field) []zap.Field {
	fields := make([]zap.Field, 0, len(extra)+1)
	fields = append(fields, zap.String("call_id", callID))
	fields = append(fields, extra...)
	return fields
}

// nopLogger returns a no-op zap logger for callers that don't supply one.
func nopLogger() *zap.Logger {
	return zap.NewNop()
}
