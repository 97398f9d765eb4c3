package logging

import "context"

// NopLogger discards all log output. Useful in tests.
type NopLogger struct{}

// NewNopLogger returns a Logger that does nothing.
func NewNopLogger() *NopLogger { return &NopLogger{} }

func (n *NopLogger) Info(context.Context, string, ...any)  {}
func (n *NopLogger) Warn(context.Context, string, ...any)  {}
func (n *NopLogger) Error(context.Context, string, ...any) {}
func (n *NopLogger) With(...any) Logger                    { return n }
