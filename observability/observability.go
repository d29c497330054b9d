// Package observability provides the logging hooks used by the worker
// runner, the exporters and the background renderer. Callers that do not
// care pass the no-op logger; the annotate worker uses the text logger to
// leave a durable diagnostic record.
package observability

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type floatField struct {
	key string
	val float64
}

func (f floatField) Key() string        { return f.key }
func (f floatField) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field        { return stringField{key, value} }
func Int(key string, value int) Field       { return intField{key, value} }
func Float(key string, value float64) Field { return floatField{key, value} }
func Error(key string, err error) Field     { return errorField{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// TextLogger writes one line per event as "time level msg key=value ...".
// Safe for concurrent use; children returned by With share the parent's
// writer lock so interleaved lines stay whole.
type TextLogger struct {
	mu    *sync.Mutex
	w     io.Writer
	bound []Field
	nowFn func() time.Time
}

// NewTextLogger creates a logger writing to w.
func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{mu: &sync.Mutex{}, w: w, nowFn: time.Now}
}

func (l *TextLogger) log(level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s %s %s", l.nowFn().Format(time.RFC3339), level, msg)
	for _, f := range l.bound {
		fmt.Fprintf(l.w, " %s=%v", f.Key(), f.Value())
	}
	for _, f := range fields {
		fmt.Fprintf(l.w, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(l.w)
}

func (l *TextLogger) Debug(msg string, fields ...Field) { l.log("DEBUG", msg, fields) }
func (l *TextLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields) }
func (l *TextLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields) }
func (l *TextLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields) }

func (l *TextLogger) With(fields ...Field) Logger {
	return &TextLogger{
		mu:    l.mu,
		w:     l.w,
		bound: append(append([]Field(nil), l.bound...), fields...),
		nowFn: l.nowFn,
	}
}

// Standard metric names emitted around takeoff operations.
const (
	MetricMutateDuration    = "takeoff.mutate.duration"
	MetricMutateShapes      = "takeoff.mutate.shapes"
	MetricMutateSkipped     = "takeoff.mutate.skipped"
	MetricExportDuration    = "takeoff.export.duration"
	MetricThumbnailDuration = "takeoff.thumbnail.duration"
)
