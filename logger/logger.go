package logger

import (
	"chatrelay/common"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	logFilePrefix   = "chatrelay-"
	logFileSuffix   = ".log"
	maxLogFileCount = 7
)

var once sync.Once

var log zerolog.Logger

// GetLogLevel reads CHATRELAY_LOG_LEVEL as a zerolog numeric level (-1 trace
// through 5 panic). Anything unparsable means info.
func GetLogLevel() zerolog.Level {
	logLevel, err := strconv.Atoi(os.Getenv("CHATRELAY_LOG_LEVEL"))
	if err != nil {
		logLevel = int(zerolog.InfoLevel)
	}

	return zerolog.Level(logLevel)
}

func Get() zerolog.Logger {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}

		var output io.Writer = consoleWriter

		stateHome, err := common.GetChatrelayStateHome()
		if err == nil {
			fileWriter, err := common.NewRotatingFileWriter(stateHome, logFilePrefix, logFileSuffix, maxLogFileCount)
			if err == nil {
				output = zerolog.MultiLevelWriter(consoleWriter, fileWriter)
			}
		}

		log = New(output, GetLogLevel())
	})

	return log
}

// New builds a logger with the standard fields on an arbitrary writer.
func New(output io.Writer, level zerolog.Level) zerolog.Logger {
	var gitRevision, goVersion string
	buildInfo, ok := debug.ReadBuildInfo()
	if ok {
		goVersion = buildInfo.GoVersion
		for _, v := range buildInfo.Settings {
			if v.Key == "vcs.revision" {
				gitRevision = v.Value
				break
			}
		}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("git_revision", gitRevision).
		Str("go_version", goVersion).
		Logger()
}
