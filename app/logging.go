package app

import (
	"os"

	"github.com/sirupsen/logrus"
)

type LoggingConfig struct {
	Type       string `env:"LOG_TYPE"`
	ServerName string `env:"SERVER_NAME"`
}

// Setup configures the global logrus logger. LOG_TYPE=json switches to the
// JSON formatter for log shippers; anything else stays on text.
func (conf *LoggingConfig) Setup() {
	if conf.Type == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(Config("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if conf.ServerName != "" {
		logrus.AddHook(&serverNameHook{name: conf.ServerName})
	}
}

// serverNameHook stamps every entry with the configured server name.
type serverNameHook struct {
	name string
}

func (h *serverNameHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *serverNameHook) Fire(entry *logrus.Entry) error {
	entry.Data["server"] = h.name
	return nil
}
