package log

import (
	"context"
	"fmt"
	"os"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
)

const (
	HttpXRequestId = "X-Request-Id"
	CtxRequestId   = "requestId"
	CtxUserId      = "userId"

	FieldDatasetId = "datasetId"

	FormatText = "text"
	FormatJSON = "json"
)

const timestampFormat = "2006-01-02 15:04:05"

func callerPrettyfier(frame *runtime.Frame) (string, string) {
	return "", fmt.Sprintf("%s:%d", path.Base(frame.File), frame.Line)
}

// InitLog configures the standard logger. format is FormatText or FormatJSON;
// anything else falls back to text.
func InitLog(logLevel, format string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Errorf("failed to parse log level: %v, err: %v", logLevel, err)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetReportCaller(true)
	logrus.SetOutput(os.Stdout)

	switch format {
	case FormatJSON:
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  timestampFormat,
			CallerPrettyfier: callerPrettyfier,
		})
	default:
		if format != FormatText && format != "" {
			logrus.Errorf("unknown log format %q, using %s", format, FormatText)
		}
		logrus.SetFormatter(&logrus.TextFormatter{
			TimestampFormat:  timestampFormat,
			FullTimestamp:    true,
			DisableColors:    true,
			DisableQuote:     true,
			CallerPrettyfier: callerPrettyfier,
		})
	}
}

// GetLogger returns an entry tagged with the request id and user id stored on
// c. A *gin.Context works here because it resolves string keys from its Keys
// map.
func GetLogger(c context.Context) *logrus.Entry {
	entry := NewLogger()
	if c == nil {
		return entry
	}
	fields := logrus.Fields{}
	for _, key := range []string{CtxRequestId, CtxUserId} {
		if v := c.Value(key); v != nil {
			fields[key] = v
		}
	}
	if len(fields) == 0 {
		return entry
	}
	return entry.WithFields(fields)
}

// WithDataset is GetLogger scoped to one dataset.
func WithDataset(c context.Context, datasetId int) *logrus.Entry {
	return GetLogger(c).WithField(FieldDatasetId, datasetId)
}

func NewLogger() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}
