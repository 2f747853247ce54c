package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance. It is a no-op logger until Initialize runs,
// so packages can log from tests without setup.
var Log = zap.NewNop()

// Initialize sets up the structured logger.
// level: "debug", "info", "warn", "error" (default "info")
// file: JSON log destination with rotation; empty disables the file sink
func Initialize(level string, file string) error {
	if level == "" {
		level = "info"
	}
	lvl := parseLevel(level)

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		lvl,
	)
	cores := []zapcore.Core{consoleCore}

	if file != "" {
		jsonConfig := zap.NewProductionEncoderConfig()
		jsonConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(jsonConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   file,
				MaxSize:    100, // megabytes
				MaxBackups: 5,
				MaxAge:     7, // days
				Compress:   true,
			}),
			lvl,
		))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	Log.Debug("Logger initialized", zap.String("level", level), zap.String("file", file))
	return nil
}

// Close flushes buffered entries before shutdown
func Close() error {
	return Log.Sync()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WarnWithFields logs a warning with an optional error
func WarnWithFields(msg string, err error) {
	if err != nil {
		Log.Warn(msg, zap.Error(err))
		return
	}
	Log.Warn(msg)
}

// ErrorWithFields logs an error-level entry with an optional error
func ErrorWithFields(msg string, err error) {
	if err != nil {
		Log.Error(msg, zap.Error(err))
		return
	}
	Log.Error(msg)
}

// FatalWithFields logs and exits
func FatalWithFields(msg string, err error) {
	if err != nil {
		Log.Fatal(msg, zap.Error(err))
	}
	Log.Fatal(msg)
}

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithTweetID(tweetID string) zap.Field {
	return zap.String("tweet_id", tweetID)
}

func WithConversationID(conversationID string) zap.Field {
	return zap.String("conversation_id", conversationID)
}

func WithConnID(connID string) zap.Field {
	return zap.String("conn_id", connID)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}

func WithDuration(duration interface{}) zap.Field {
	return zap.Any("duration", duration)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}
