package monitoring

import (
	"github.com/rs/zerolog/log"
)

// Alert reports a condition an operator should look at. It only logs for
// now; storage faults are the one caller.
func Alert(message string, err error, labels map[string]string) {
	fields := make(map[string]interface{}, len(labels))
	for k, v := range labels {
		fields[k] = v
	}
	log.Error().
		Err(err).
		Fields(fields).
		Msg("ALERT: " + message)
}
