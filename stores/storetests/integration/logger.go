//go:build integration

package integration

import (
	stdlog "log"
	"os"

	"github.com/testcontainers/testcontainers-go/log"
)

// containerLogger 默认静默，设置 INTEGRATION_VERBOSE=1 时输出容器启动日志
type containerLogger struct {
	verbose bool
}

func newContainerLogger() containerLogger {
	return containerLogger{verbose: os.Getenv("INTEGRATION_VERBOSE") != ""}
}

func (l containerLogger) Printf(format string, v ...any) {
	if l.verbose {
		stdlog.Printf(format, v...)
	}
}

var _ log.Logger = (*containerLogger)(nil)
