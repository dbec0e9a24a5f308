package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorMagenta = "\x1b[35m"
	colorReset   = "\x1b[0m"

	customLevelKey = "customlevel"
)

// contextKeys are rendered as a bracketed prefix, in this order, instead of
// as trailing key=value pairs.
var contextKeys = []struct{ key, short string }{
	{"run", "R"},
	{"stage", "S"},
	{"host", "H"},
}

var _bufferPool = buffer.NewPool()

// consoleEncoder renders one human-readable line per entry:
//
//	2024-01-02T15:04:05Z [S:preflight][H:node1] [INFO] message key=value
type consoleEncoder struct {
	zapcore.EncoderConfig
	*zapcore.MapObjectEncoder
	opts Options
}

func newConsoleEncoder(cfg zapcore.EncoderConfig, opts Options) *consoleEncoder {
	return &consoleEncoder{
		EncoderConfig:    cfg,
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		opts:             opts,
	}
}

func (enc *consoleEncoder) Clone() zapcore.Encoder {
	clone := newConsoleEncoder(enc.EncoderConfig, enc.opts)
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (enc *consoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	all := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		all.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(all)
	}

	line := _bufferPool.Get()
	if enc.TimeKey != "" {
		line.AppendString(ent.Time.Format(enc.opts.TimestampFormat))
		line.AppendByte(' ')
	}

	var prefix strings.Builder
	for _, ck := range contextKeys {
		if v, ok := all.Fields[ck.key]; ok {
			fmt.Fprintf(&prefix, "[%s:%v]", ck.short, v)
			delete(all.Fields, ck.key)
		}
	}
	if prefix.Len() > 0 {
		line.AppendString(prefix.String())
		line.AppendByte(' ')
	}

	levelText := strings.ToUpper(ent.Level.String())
	if v, ok := all.Fields[customLevelKey].(string); ok {
		levelText = v
	}
	delete(all.Fields, customLevelKey)
	line.AppendString(enc.colorize(levelText, "["+levelText+"]"))
	line.AppendByte(' ')
	line.AppendString(ent.Message)

	keys := make([]string, 0, len(all.Fields))
	for k := range all.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fmt.Sprintf("%v", all.Fields[k])
		if v == "" || strings.ContainsAny(v, " \t\n") {
			v = fmt.Sprintf("%q", v)
		}
		line.AppendByte(' ')
		line.AppendString(k)
		line.AppendByte('=')
		line.AppendString(v)
	}

	if enc.LineEnding != "" {
		line.AppendString(enc.LineEnding)
	} else {
		line.AppendString(zapcore.DefaultLineEnding)
	}
	return line, nil
}

func (enc *consoleEncoder) colorize(level, text string) string {
	if !enc.opts.ColorConsole {
		return text
	}
	switch level {
	case "DEBUG":
		return colorMagenta + text + colorReset
	case "SUCCESS":
		return colorGreen + text + colorReset
	case "WARN":
		return colorYellow + text + colorReset
	case "ERROR", "FAIL", "FATAL", "PANIC", "DPANIC":
		return colorRed + text + colorReset
	default:
		return text
	}
}
