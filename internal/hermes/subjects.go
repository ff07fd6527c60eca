package hermes

import "time"

const (
	SubjectCatalogSaved      = "archetype.catalog.saved"
	SubjectCatalogCalibrated = "archetype.catalog.calibrated"
	SubjectResultScored      = "archetype.result.scored"

	// SubjectCalibrationRequest is a plain NATS subject, not captured by the stream.
	SubjectCalibrationRequest = "archetype.calibration.request"

	StreamName   = "ARCHETYPE_EVENTS"
	StreamMaxAge = 30 * 24 * time.Hour

	// QueueGroup spreads calibration requests over replicas so one of them runs it.
	QueueGroup = "archetype"
)

// streamSubjects are persisted by the ARCHETYPE_EVENTS stream.
var streamSubjects = []string{SubjectCatalogSaved, SubjectCatalogCalibrated, SubjectResultScored}

// Streamed reports whether events on subject are kept by the stream.
func Streamed(subject string) bool {
	for _, s := range streamSubjects {
		if s == subject {
			return true
		}
	}
	return false
}
