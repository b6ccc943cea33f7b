// Package zaplog builds the logr.Logger flowtrace logs through, backed by
// go.uber.org/zap.
//
// Levels are shown with their logr verbosity, e.g. "INFO(v=0)" or
// "DEBUG(v=2)", as frames deeper in a trace log at higher verbosity.
package zaplog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/luxas/flowtrace/filetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// LevelEncoder is a symbolic link to zapcore.LevelEncoder.
	LevelEncoder = zapcore.LevelEncoder
	// EncoderConfig is a symbolic link to zapcore.EncoderConfig.
	EncoderConfig = zapcore.EncoderConfig
)

// Format is the output format of the logger.
type Format string

const (
	// FormatConsole writes tab-separated, human-friendly lines.
	FormatConsole Format = "console"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatConsole, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown log format %q, expected %q or %q", s, FormatConsole, FormatJSON)
}

// LowercaseLevelEncoder extends zapcore.LowercaseLevelEncoder by adding
// "(v={V})" to all info and debug levels, where {V} is the logr verbosity.
func LowercaseLevelEncoder() LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(levelString(l, false))
	}
}

// CapitalLevelEncoder is the capitalized variant of LowercaseLevelEncoder.
func CapitalLevelEncoder() LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(levelString(l, true))
	}
}

func levelString(l zapcore.Level, capital bool) string {
	// zap has no names for levels below debug; those are logr's V(2) and up
	named := l
	if named < zap.DebugLevel {
		named = zap.DebugLevel
	}
	str := named.String()
	if capital {
		str = named.CapitalString()
	}
	if l <= zap.InfoLevel {
		str += "(v=" + strconv.Itoa(int(-l)) + ")"
	}
	return str
}

// NewZap returns a new *Builder writing console-formatted lines to os.Stderr
// at verbosity 0.
func NewZap() *Builder {
	return &Builder{
		out:    os.Stderr,
		format: FormatConsole,
	}
}

// Builder is a builder-pattern struct for building a logr.Logger
// using go.uber.org/zap.
type Builder struct {
	out          io.Writer
	format       Format
	level        zapcore.Level
	noTimestamps bool
	noStacktrace bool
	opts         []zap.Option
}

// LogTo specifies where to write logs. The writer is locked using
// zapcore.Lock, so it can be shared between goroutines.
//
// Defaults to os.Stderr.
func (b *Builder) LogTo(w io.Writer) *Builder {
	b.out = w
	return b
}

// Console makes the logger write tab-separated lines. This is the default.
func (b *Builder) Console() *Builder { return b.WithFormat(FormatConsole) }

// JSON makes the logger write JSON lines.
func (b *Builder) JSON() *Builder { return b.WithFormat(FormatJSON) }

// WithFormat sets the output format.
func (b *Builder) WithFormat(f Format) *Builder {
	b.format = f
	return b
}

// LogUpto specifies the logr verbosity that shall be used. All log messages
// from a logr.Logger with a verbosity _less than or equal to_ logrLevel will
// be output.
//
// To convert between zap and logr log levels, multiply by -1 like follows:
//
//	Level	Zap	Logr
//		-N	N
//	Debug	-1	1
//	Info	0	0	(default)
//	Error	2	N/A
//
// Negative values are ignored.
func (b *Builder) LogUpto(logrLevel int8) *Builder {
	if logrLevel >= 0 {
		b.level = zapcore.Level(-logrLevel)
	}
	return b
}

// NoTimestamps omits timestamps in the logs. It's useful for deterministic
// output in examples and tests.
func (b *Builder) NoTimestamps() *Builder {
	b.noTimestamps = true
	return b
}

// NoStacktraceOnError makes the logger not output a stack trace when
// an error is logged. Failed frames already carry a traceback.
func (b *Builder) NoStacktraceOnError() *Builder {
	b.noStacktrace = true
	return b
}

// WithOptions appends options for configuring zap.
func (b *Builder) WithOptions(opts ...zap.Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Test makes the logger log to a file under testdata/ with the name of the
// test + the ".log" suffix, verified by the given filetest.Tester. Timestamps
// are left out, as are stack trace origins.
func (b *Builder) Test(g *filetest.Tester) *Builder {
	return b.NoTimestamps().LogTo(g.Add(g.T.Name() + ".log").Filter(FilterStacktraceOrigins).Writer())
}

// EncoderConfig returns the encoder configuration Build uses.
func (b *Builder) EncoderConfig() EncoderConfig {
	var cfg EncoderConfig
	if b.format == FormatJSON {
		cfg = zap.NewProductionEncoderConfig()
		cfg.EncodeLevel = LowercaseLevelEncoder()
	} else {
		cfg = zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = CapitalLevelEncoder()
		cfg.CallerKey = zapcore.OmitKey
	}
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	if b.noTimestamps {
		cfg.TimeKey = zapcore.OmitKey
	}
	return cfg
}

// Build builds the logger with the configured options.
func (b *Builder) Build() logr.Logger {
	sink := zapcore.Lock(zapcore.AddSync(b.out))

	var encoder zapcore.Encoder
	if b.format == FormatJSON {
		encoder = zapcore.NewJSONEncoder(b.EncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(b.EncoderConfig())
	}

	stackLevel := zap.ErrorLevel
	if b.noStacktrace {
		stackLevel = zap.DPanicLevel
	}
	// Defaults first, so b.opts can override them
	opts := []zap.Option{
		zap.AddStacktrace(stackLevel),
		zap.ErrorOutput(sink),
	}
	opts = append(opts, b.opts...)

	return zapr.NewLogger(zap.New(zapcore.NewCore(encoder, sink, b.level), opts...))
}

// FilterStacktraceOrigins removes every line in content that
// starts with tab, which in console mode are the origins of a
// stack trace. These vary across Go versions.
func FilterStacktraceOrigins(content []byte) []byte {
	s := bufio.NewScanner(bytes.NewReader(content))
	out := make([]byte, 0, len(content))
	for s.Scan() {
		line := s.Bytes()
		if bytes.HasPrefix(line, []byte("\t")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}
