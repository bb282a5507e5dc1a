package launcher

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"
	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

// sentryLevels are the levels reported to Sentry when a DSN is configured.
var sentryLevels = []logrus.Level{
	logrus.PanicLevel,
	logrus.FatalLevel,
	logrus.ErrorLevel,
}

// SetupLogging builds the logrus sink and routes the go-ethereum root logger,
// which the sale packages write to, into it.
func SetupLogging(cfg LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(logrusLevel(log.Lvl(cfg.Verbosity)))

	switch cfg.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   cfg.Color,
			DisableColors: !cfg.Color,
			FullTimestamp: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.SentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.SentryDSN, sentryLevels)
		if err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		logger.AddHook(hook)
	}

	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(cfg.Verbosity), bridge(logger)))
	return logger, nil
}

// bridge forwards go-ethereum log records to logger.
func bridge(logger *logrus.Logger) log.Handler {
	return log.FuncHandler(func(r *log.Record) error {
		fields := make(logrus.Fields, len(r.Ctx)/2)
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			fields[fmt.Sprint(r.Ctx[i])] = fieldValue(r.Ctx[i+1])
		}
		entry := logger.WithFields(fields)
		entry.Time = r.Time
		entry.Log(logrusLevel(r.Lvl), r.Msg)
		return nil
	})
}

func fieldValue(v interface{}) interface{} {
	switch v := v.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

// logrusLevel maps go-ethereum levels onto logrus ones. Crit becomes Fatal
// but is emitted with Entry.Log, which never exits; log.Crit does that itself.
func logrusLevel(lvl log.Lvl) logrus.Level {
	switch {
	case lvl <= log.LvlCrit:
		return logrus.FatalLevel
	case lvl == log.LvlError:
		return logrus.ErrorLevel
	case lvl == log.LvlWarn:
		return logrus.WarnLevel
	case lvl == log.LvlInfo:
		return logrus.InfoLevel
	case lvl == log.LvlDebug:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}
