package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

const LevelTrace slog.Level = -8

// NewLogger returns a text logger writing to w. Source locations are trimmed
// to the file name and the trace level prints as TRACE.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				switch attr.Value.Any().(slog.Level) {
				case LevelTrace:
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	}))
}

type key string

func Trace(msg string, args ...any) {
	TraceContext(context.WithValue(context.TODO(), key("skip"), 1), msg, args...)
}

func TraceContext(ctx context.Context, msg string, args ...any) {
	if logger := slog.Default(); logger.Enabled(ctx, LevelTrace) {
		skip, _ := ctx.Value(key("skip")).(int)
		pc, _, _, _ := runtime.Caller(1 + skip)
		record := slog.NewRecord(time.Now(), LevelTrace, msg, pc)
		record.Add(args...)
		logger.Handler().Handle(ctx, record)
	}
}

// Enabled reports whether the default logger emits records at level.
func Enabled(level slog.Level) bool {
	return slog.Default().Enabled(context.TODO(), level)
}

// Bytes logs a byte sequence as a quoted string. Token bytes are often not
// valid UTF-8 on their own so they are escaped rather than written raw.
type Bytes []byte

func (b Bytes) LogValue() slog.Value {
	return slog.StringValue(strconv.Quote(string(b)))
}

// Pair logs two byte sequences as a quoted "left right" pair, the way a merge
// is usually written down.
type Pair [2][]byte

func (p Pair) LogValue() slog.Value {
	return slog.StringValue(strconv.Quote(string(p[0])) + " " + strconv.Quote(string(p[1])))
}
