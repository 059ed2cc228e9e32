package config

const (
	defaultOutputDir = "~/.local/share/cvcutter/output"
	defaultTempDir   = "~/.local/share/cvcutter/temp"
	defaultLogDir    = "~/.local/share/cvcutter/logs"
	defaultStateFile = "~/.local/share/cvcutter/upload_state.json"

	defaultClientSecretsFile = "~/.config/cvcutter/client_secrets.json"
	defaultTokenFile         = "~/.config/cvcutter/token.json"

	defaultLeftZoneEndFraction     = 0.15
	defaultCenterZoneWidthFraction = 0.70
	defaultMinDurationSeconds      = 30
	defaultConfidenceThreshold     = 0.5

	defaultSyncSampleRate     = 22050
	defaultToleranceSeconds   = 1.0
	defaultMinCorrelation     = 0.2
	defaultAudioBitrate       = "192k"
	defaultVideoVolume        = 0.6
	defaultMicVolume          = 1.5
	defaultDailyQuotaUnits    = 10000
	defaultUploadCostUnits    = 1600
	defaultUploadMaxRetries   = 5
	defaultUploadChunkSizeMiB = 16
	defaultPrivacyStatus      = "unlisted"
	defaultCategoryID         = "10"
	defaultUploadLanguage     = "ja"
	defaultQuotaTimeZone      = "America/Los_Angeles"

	defaultLogFormat = "auto"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			TempDir:   defaultTempDir,
			LogDir:    defaultLogDir,
		},
		Detection: Detection{
			LeftZoneEndFraction:     defaultLeftZoneEndFraction,
			CenterZoneWidthFraction: defaultCenterZoneWidthFraction,
			MinDurationSeconds:      defaultMinDurationSeconds,
			ConfidenceThreshold:     defaultConfidenceThreshold,
			PersonClassID:           0,
		},
		Sync: Sync{
			SampleRate:       defaultSyncSampleRate,
			ToleranceSeconds: defaultToleranceSeconds,
			MinCorrelation:   defaultMinCorrelation,
		},
		Encoding: Encoding{
			UseGPU:       true,
			Deinterlace:  true,
			AudioBitrate: defaultAudioBitrate,
			VideoVolume:  defaultVideoVolume,
			MicVolume:    defaultMicVolume,
		},
		Upload: Upload{
			StateFile:         defaultStateFile,
			ClientSecretsFile: defaultClientSecretsFile,
			TokenFile:         defaultTokenFile,
			DailyQuotaUnits:   defaultDailyQuotaUnits,
			UploadCostUnits:   defaultUploadCostUnits,
			MaxRetries:        defaultUploadMaxRetries,
			ChunkSizeMiB:      defaultUploadChunkSizeMiB,
			PrivacyStatus:     defaultPrivacyStatus,
			CategoryID:        defaultCategoryID,
			Language:          defaultUploadLanguage,
			QuotaTimeZone:     defaultQuotaTimeZone,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
