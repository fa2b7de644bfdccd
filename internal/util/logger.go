package util

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LOG_BUFFER_SIZE = 1000

var (
	ErrLogNotInitialized      = errors.New("log object is not initialized yet")
	LOG_FOLDER_NAME_WITH_PATH = ".." + string(os.PathSeparator) + "log"
	globalLogLevel            = 3
)

const (
	LOG_LEVEL_ERROR = iota + 1
	LOG_LEVEL_WARN
	LOG_LEVEL_INFO
	LOG_LEVEL_DEBUG
)

// TelemetryLogger buffers leveled log lines through a channel and writes
// them to a file via zap. A zero-value logger is safe to use: LogEvent
// reports ErrLogNotInitialized and drops the line.
type TelemetryLogger struct {
	logBuffer         chan leveledEntry
	handle            *os.File
	wg                *sync.WaitGroup
	loggerInitialized bool
	zapLogger         *zap.Logger
}

type leveledEntry struct {
	level  int
	logMsg string
}

func (t *TelemetryLogger) Init(logFileName string, rewrite bool) error {
	t.wg = new(sync.WaitGroup)
	t.logBuffer = make(chan leveledEntry, LOG_BUFFER_SIZE)

	fileWithRelPath := LOG_FOLDER_NAME_WITH_PATH + string(os.PathSeparator) + logFileName

	flags := os.O_RDWR | os.O_CREATE | os.O_APPEND
	if rewrite {
		flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}

	var err error
	t.handle, err = os.OpenFile(fileWithRelPath, flags, 0666)
	if err != nil {
		return err
	}

	t.zapLoggerInit()

	t.wg.Add(1)
	go t.logWriter()

	t.loggerInitialized = true
	return nil
}

func (t *TelemetryLogger) zapLoggerInit() {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncodeLevel = zapcore.CapitalLevelEncoder

	fileEncoder := zapcore.NewConsoleEncoder(config)
	writer := zapcore.AddSync(t.handle)

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, writer, GlobalLogLevelSetter()),
	)
	t.zapLogger = zap.New(core)
	defer t.zapLogger.Sync()
}

func GlobalLogLevelSetter() zapcore.Level {
	switch globalLogLevel {
	case LOG_LEVEL_ERROR:
		return zapcore.ErrorLevel
	case LOG_LEVEL_WARN:
		return zapcore.WarnLevel
	case LOG_LEVEL_DEBUG:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (t *TelemetryLogger) logWriter() {
	for entry := range t.logBuffer {
		switch entry.level {
		case LOG_LEVEL_ERROR:
			t.zapLogger.Error(entry.logMsg)
		case LOG_LEVEL_WARN:
			t.zapLogger.Warn(entry.logMsg)
		case LOG_LEVEL_DEBUG:
			t.zapLogger.Debug(entry.logMsg)
		default:
			t.zapLogger.Info(entry.logMsg)
		}
	}
	t.wg.Done()
}

// LogEvent accepts an optional leading level constant followed by the
// message parts. With no level, the line is logged at INFO.
func (t *TelemetryLogger) LogEvent(v ...interface{}) error {
	var msg string
	level := LOG_LEVEL_INFO

	if len(v) == 1 {
		msg = fmt.Sprint(v[0])
	} else if len(v) > 1 {
		if lvl, ok := v[0].(int); ok && lvl >= LOG_LEVEL_ERROR && lvl <= LOG_LEVEL_DEBUG {
			level = lvl
			msg = fmt.Sprintf("%v", v[1:])
		} else {
			msg = fmt.Sprintf("%v", v)
		}
		msg = msg[1 : len(msg)-1]
	}

	if !t.loggerInitialized {
		return ErrLogNotInitialized
	}
	t.logBuffer <- leveledEntry{level, msg}
	return nil
}

func (t *TelemetryLogger) DeInit() {
	if !t.loggerInitialized {
		return
	}
	t.loggerInitialized = false
	close(t.logBuffer)
	t.wg.Wait()

	t.handle.Close()
}

func SetCommonLoggerAttributes(GlobalLogLevel int) {
	globalLogLevel = GlobalLogLevel
}

func SetLoggerPath(logPath string) {
	LOG_FOLDER_NAME_WITH_PATH = logPath
}

func CheckAndCreateLogFolder(FolderNameWithPath string) {
	_, err := os.Stat(FolderNameWithPath)

	if os.IsNotExist(err) {
		err := os.MkdirAll(FolderNameWithPath, 0755)
		if err != nil {
			fmt.Println("Failed to create the log folder and Mkdir err :: ", err)
		}
	}
}
