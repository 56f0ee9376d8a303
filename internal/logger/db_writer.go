package logger

import (
	"context"
	"fmt"
	"sync"
	"time"

	common_models "go-viz/internal/common/models"
	"go-viz/internal/config"
	"go-viz/internal/database"

	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to our worker
type LogEntry struct {
	Level     zapcore.Level
	Message   string
	SessionID string
	Caller    string // Function name
}

// LogSink persists a single log record.
type LogSink func(ctx context.Context, record common_models.Log) error

// DBLogWriter handles the async writing
type DBLogWriter struct {
	sink    LogSink
	logChan chan LogEntry
	appId   string
	done    chan struct{}
	once    sync.Once
}

// NewDBLogWriter writes to the engine log collection.
func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	coll := mongodb.DB.Collection(database.LogsCollection)
	return NewLogWriter(func(ctx context.Context, record common_models.Log) error {
		_, err := coll.InsertOne(ctx, record)
		return err
	}, cfg.AppId, 1000)
}

// NewLogWriter starts a worker draining a buffer of size entries into sink.
func NewLogWriter(sink LogSink, appId string, size int) *DBLogWriter {
	writer := &DBLogWriter{
		sink:    sink,
		logChan: make(chan LogEntry, size),
		appId:   appId,
		done:    make(chan struct{}),
	}

	go writer.processLogs()

	return writer
}

// AddLog is called by our Zap hook. It never blocks.
func (w *DBLogWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop log to prevent blocking the API
		fmt.Println("DB Log Channel Full! Dropping log:", entry.Message)
	}
}

// Close flushes buffered entries and stops the worker. AddLog must not be
// called afterwards.
func (w *DBLogWriter) Close() {
	w.once.Do(func() {
		close(w.logChan)
		<-w.done
	})
}

func (w *DBLogWriter) processLogs() {
	defer close(w.done)
	for entry := range w.logChan {
		record := common_models.Log{
			Message:      entry.Message,
			SessionID:    entry.SessionID,
			Caller:       entry.Caller,
			AppId:        w.appId,
			LogLevelId:   mapLevelToInt(entry.Level),
			CreatedOnUtc: time.Now().UTC(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// Errors are ignored to keep the app running
		_ = w.sink(ctx, record)
		cancel()
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
