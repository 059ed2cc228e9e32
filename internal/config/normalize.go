package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeUpload(); err != nil {
		return err
	}
	c.normalizeSync()
	c.normalizeEncoding()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Detection.ModelPath, err = expandPath(strings.TrimSpace(c.Detection.ModelPath)); err != nil {
		return fmt.Errorf("detection.model_path: %w", err)
	}
	if c.Detection.ModelConfigPath, err = expandPath(strings.TrimSpace(c.Detection.ModelConfigPath)); err != nil {
		return fmt.Errorf("detection.model_config_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeUpload() error {
	var err error
	if strings.TrimSpace(c.Upload.StateFile) == "" {
		c.Upload.StateFile = defaultStateFile
	}
	if c.Upload.StateFile, err = expandPath(c.Upload.StateFile); err != nil {
		return fmt.Errorf("upload.state_file: %w", err)
	}
	if strings.TrimSpace(c.Upload.ClientSecretsFile) == "" {
		c.Upload.ClientSecretsFile = defaultClientSecretsFile
	}
	if c.Upload.ClientSecretsFile, err = expandPath(c.Upload.ClientSecretsFile); err != nil {
		return fmt.Errorf("upload.client_secrets_file: %w", err)
	}
	if strings.TrimSpace(c.Upload.TokenFile) == "" {
		c.Upload.TokenFile = defaultTokenFile
	}
	if c.Upload.TokenFile, err = expandPath(c.Upload.TokenFile); err != nil {
		return fmt.Errorf("upload.token_file: %w", err)
	}
	c.Upload.PrivacyStatus = strings.ToLower(strings.TrimSpace(c.Upload.PrivacyStatus))
	if c.Upload.PrivacyStatus == "" {
		c.Upload.PrivacyStatus = defaultPrivacyStatus
	}
	c.Upload.CategoryID = strings.TrimSpace(c.Upload.CategoryID)
	if c.Upload.CategoryID == "" {
		c.Upload.CategoryID = defaultCategoryID
	}
	c.Upload.Language = strings.TrimSpace(c.Upload.Language)
	c.Upload.QuotaTimeZone = strings.TrimSpace(c.Upload.QuotaTimeZone)
	if c.Upload.QuotaTimeZone == "" {
		c.Upload.QuotaTimeZone = defaultQuotaTimeZone
	}
	if c.Upload.MaxRetries <= 0 {
		c.Upload.MaxRetries = defaultUploadMaxRetries
	}
	if c.Upload.ChunkSizeMiB <= 0 {
		c.Upload.ChunkSizeMiB = defaultUploadChunkSizeMiB
	}
	return nil
}

func (c *Config) normalizeSync() {
	if c.Sync.SampleRate <= 0 {
		c.Sync.SampleRate = defaultSyncSampleRate
	}
	if c.Sync.ToleranceSeconds <= 0 {
		c.Sync.ToleranceSeconds = defaultToleranceSeconds
	}
	if c.Sync.MinCorrelation <= 0 {
		c.Sync.MinCorrelation = defaultMinCorrelation
	}
}

func (c *Config) normalizeEncoding() {
	c.Encoding.AudioBitrate = strings.TrimSpace(c.Encoding.AudioBitrate)
	if c.Encoding.AudioBitrate == "" {
		c.Encoding.AudioBitrate = defaultAudioBitrate
	}
	if c.Encoding.VideoVolume <= 0 {
		c.Encoding.VideoVolume = defaultVideoVolume
	}
	if c.Encoding.MicVolume <= 0 {
		c.Encoding.MicVolume = defaultMicVolume
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
