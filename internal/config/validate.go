package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDetection() error {
	d := c.Detection
	if d.LeftZoneEndFraction < 0 || d.LeftZoneEndFraction >= 1 {
		return errors.New("detection.left_zone_end_fraction must be in [0, 1)")
	}
	if d.CenterZoneWidthFraction <= 0 || d.CenterZoneWidthFraction > 1 {
		return errors.New("detection.center_zone_width_fraction must be in (0, 1]")
	}
	if d.LeftZoneEndFraction+d.CenterZoneWidthFraction > 1 {
		return errors.New("detection zone fractions must not extend past the right frame edge")
	}
	if d.MinDurationSeconds < 0 {
		return errors.New("detection.min_duration_seconds must not be negative")
	}
	if d.MaxSeconds < 0 {
		return errors.New("detection.max_seconds must not be negative")
	}
	if d.ConfidenceThreshold <= 0 || d.ConfidenceThreshold >= 1 {
		return errors.New("detection.confidence_threshold must be in (0, 1)")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.MinCorrelation >= 1 {
		return errors.New("sync.min_correlation must be below 1")
	}
	return nil
}

func (c *Config) validateUpload() error {
	u := c.Upload
	if u.DailyQuotaUnits <= 0 {
		return errors.New("upload.daily_quota_units must be positive")
	}
	if u.UploadCostUnits <= 0 {
		return errors.New("upload.upload_cost_units must be positive")
	}
	if u.UploadCostUnits > u.DailyQuotaUnits {
		return errors.New("upload.upload_cost_units must not exceed upload.daily_quota_units")
	}
	switch u.PrivacyStatus {
	case "public", "private", "unlisted":
	default:
		return fmt.Errorf("upload.privacy_status: unsupported value %q", u.PrivacyStatus)
	}
	if _, err := time.LoadLocation(u.QuotaTimeZone); err != nil {
		return fmt.Errorf("upload.quota_time_zone: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
