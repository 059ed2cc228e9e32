package uploader

import (
	"context"
	"log/slog"
	"time"

	"cvcutter/internal/logging"
)

// QuotaConfig is the daily transfer budget model: a fixed unit budget and a
// fixed per-upload cost bound the uploads per quota window.
type QuotaConfig struct {
	DailyBudgetUnits int
	UploadCostUnits  int
	// Location is the reference time zone whose midnight resets the window.
	Location *time.Location
}

// MaxUploadsPerDay returns the floor of budget over cost.
func (c QuotaConfig) MaxUploadsPerDay() int {
	if c.UploadCostUnits <= 0 {
		return 0
	}
	return c.DailyBudgetUnits / c.UploadCostUnits
}

// QuotaManager enforces the daily budget against the durable state store.
// Every mutation is flushed synchronously before the caller proceeds.
type QuotaManager struct {
	store  StateStore
	cfg    QuotaConfig
	logger *slog.Logger
	now    func() time.Time
	wait   func(context.Context, time.Duration) error
}

// NewQuotaManager constructs a manager. A nil logger is replaced with a
// no-op logger.
func NewQuotaManager(store StateStore, cfg QuotaConfig, logger *slog.Logger) *QuotaManager {
	return &QuotaManager{
		store:  store,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "quota"),
		now:    time.Now,
		wait:   sleepContext,
	}
}

// nextReset computes the next midnight in the reference time zone.
func (m *QuotaManager) nextReset() time.Time {
	local := m.now().In(m.cfg.Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.cfg.Location)
	return midnight.AddDate(0, 0, 1)
}

// checkAndReset rolls the window forward when the persisted reset instant has
// passed, or initializes it on first use.
func (m *QuotaManager) checkAndReset(state *State) (changed bool) {
	if state.QuotaResetTime.IsZero() {
		state.QuotaResetTime = m.nextReset()
		return true
	}
	if !m.now().Before(state.QuotaResetTime) {
		m.logger.Info("quota window reset",
			logging.Int("uploads_last_window", state.UploadsToday))
		state.UploadsToday = 0
		state.QuotaResetTime = m.nextReset()
		return true
	}
	return false
}

// CanUpload reports whether budget remains in the current window.
func (m *QuotaManager) CanUpload() (bool, error) {
	state, err := m.store.Load()
	if err != nil {
		return false, err
	}
	if m.checkAndReset(&state) {
		if err := m.store.Save(state); err != nil {
			return false, err
		}
	}
	return state.UploadsToday < m.cfg.MaxUploadsPerDay(), nil
}

// WaitForReset blocks until the persisted reset instant, which may be hours
// away. The wait is a cancellable timer: ctx cancellation aborts it.
func (m *QuotaManager) WaitForReset(ctx context.Context) error {
	state, err := m.store.Load()
	if err != nil {
		return err
	}
	wait := state.QuotaResetTime.Sub(m.now())
	if wait <= 0 {
		return nil
	}

	m.logger.Info("daily upload limit reached, waiting for quota reset",
		logging.Int("limit", m.cfg.MaxUploadsPerDay()),
		logging.Duration("wait", wait),
		logging.String("resume_at", state.QuotaResetTime.Format(time.RFC3339)))

	return m.wait(ctx, wait)
}

// RecordSuccess appends a success entry and increments the window counter,
// flushing before returning.
func (m *QuotaManager) RecordSuccess(filePath, videoID string) error {
	state, err := m.store.Load()
	if err != nil {
		return err
	}
	m.checkAndReset(&state)
	state.UploadHistory = append(state.UploadHistory,
		newHistoryEntry(filePath, videoID, StatusSuccess, "", m.now().UTC()))
	state.UploadsToday++
	return m.store.Save(state)
}

// RecordFailure appends a failed entry without touching the counter,
// flushing before returning.
func (m *QuotaManager) RecordFailure(filePath, errMsg string) error {
	state, err := m.store.Load()
	if err != nil {
		return err
	}
	m.checkAndReset(&state)
	state.UploadHistory = append(state.UploadHistory,
		newHistoryEntry(filePath, "", StatusFailed, errMsg, m.now().UTC()))
	return m.store.Save(state)
}

// Snapshot returns the current durable state.
func (m *QuotaManager) Snapshot() (State, error) {
	return m.store.Load()
}
