package errext

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Format turns an error into a log message and structured fields: the hint,
// when the error carries one, becomes a field instead of polluting the
// message.
func Format(err error) (string, logrus.Fields) {
	if err == nil {
		return "", nil
	}

	fields := logrus.Fields{}
	var herr HasHint
	if errors.As(err, &herr) {
		fields["hint"] = herr.Hint()
	}

	return err.Error(), fields
}
