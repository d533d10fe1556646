// Package log implements additional log outputs for the daemon, wired into
// logrus as hooks. The only output besides the console is a local file,
// selected with AUTOMEET_LOG_OUTPUT=file=path/to/automeet.log.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AsyncHook is a logrus hook that buffers its entries and needs a running
// Listen goroutine to actually deliver them.
type AsyncHook interface {
	logrus.Hook
	// Listen delivers buffered entries until ctx is done, then drains and
	// closes the output.
	Listen(ctx context.Context)
}
