package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type boardRequestMetrics struct {
	logger         *log.Logger
	start          time.Time
	authDuration   time.Duration
	fetchDuration  time.Duration
	encodeDuration time.Duration
	columnCount    int
	taskCount      int
	errorStage     string
}

func newBoardRequestMetrics(logger *log.Logger) *boardRequestMetrics {
	return &boardRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
}

func (m *boardRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *boardRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *boardRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *boardRequestMetrics) SetCounts(columns, tasks int) {
	if columns > 0 {
		m.columnCount = columns
	}
	if tasks > 0 {
		m.taskCount = tasks
	}
}

func (m *boardRequestMetrics) SetErrorStage(stage string) {
	if m.errorStage == "" {
		m.errorStage = stage
	}
}

// Log writes a single structured entry for the board request, at error
// level when a stage failed, at debug otherwise.
func (m *boardRequestMetrics) Log(status int, err error) {
	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"status":    status,
		"total_ms":  time.Since(m.start).Milliseconds(),
		"auth_ms":   m.authDuration.Milliseconds(),
		"fetch_ms":  m.fetchDuration.Milliseconds(),
		"encode_ms": m.encodeDuration.Milliseconds(),
		"columns":   m.columnCount,
		"tasks":     m.taskCount,
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	entry := m.logger.WithFields(fields)
	if err != nil || m.errorStage != "" {
		entry.Error("board request failed")
		return
	}
	entry.Debug("board request served")
}
