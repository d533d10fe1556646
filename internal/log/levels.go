package log

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// parseLevels returns every logrus level up to and including the named one,
// which is what a hook's Levels() wants: "info" hooks error, warning and info
// lines, not only the info ones.
func parseLevels(name string) ([]logrus.Level, error) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("unknown log level %s", name)
	}
	// AllLevels is ordered from panic to trace, so the prefix ending at the
	// parsed level is exactly the "at least this severe" set.
	return logrus.AllLevels[:level+1], nil
}
