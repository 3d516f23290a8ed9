package logging

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Sink is the host shell's logger: it takes a level, the emitting
// subject, a flattened message and a color hint for the on-screen console.
type Sink interface {
	Log(level, subject, message, color string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(level, subject, message, color string)

// Log implements Sink.
func (f SinkFunc) Log(level, subject, message, color string) {
	f(level, subject, message, color)
}

// Host log levels and their console colors.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelError = "ERROR"

	ColorDebug = "#006600"
	ColorInfo  = "#0000FF"
	ColorError = "#FF0000"
)

// sinkCore forwards zap entries to a Sink.
type sinkCore struct {
	zapcore.LevelEnabler
	sink   Sink
	fields []zapcore.Field
}

// NewSinkCore returns a zapcore.Core that renders entries as
// "message [key=value] ..." and hands them to sink. A nil sink yields a
// core that drops everything.
func NewSinkCore(sink Sink, enab zapcore.LevelEnabler) zapcore.Core {
	if sink == nil {
		return zapcore.NewNopCore()
	}
	return &sinkCore{LevelEnabler: enab, sink: sink}
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &sinkCore{LevelEnabler: c.LevelEnabler, sink: c.sink}
	clone.fields = append(append(clone.fields, c.fields...), fields...)
	return clone
}

func (c *sinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sinkCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	level, color := hostLevel(ent.Level)
	c.sink.Log(level, ent.LoggerName, flatten(ent.Message, enc.Fields), color)
	return nil
}

func (c *sinkCore) Sync() error { return nil }

// hostLevel maps zap levels onto the three levels the host console knows.
func hostLevel(l zapcore.Level) (string, string) {
	switch {
	case l <= zapcore.DebugLevel:
		return LevelDebug, ColorDebug
	case l == zapcore.InfoLevel:
		return LevelInfo, ColorInfo
	default:
		return LevelError, ColorError
	}
}

func flatten(msg string, fields map[string]interface{}) string {
	if len(fields) == 0 {
		return msg
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " [%s=%v]", k, fields[k])
	}
	return b.String()
}
