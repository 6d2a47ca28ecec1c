package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required in server mode)
	EnvLineChannelAccessToken = "GEO_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "GEO_LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "GEO_PORT"
	EnvLogLevel        = "GEO_LOG_LEVEL"
	EnvShutdownTimeout = "GEO_SHUTDOWN_TIMEOUT"
	EnvWebhookTimeout  = "GEO_WEBHOOK_TIMEOUT"

	// Data
	EnvDataDir     = "GEO_DATA_DIR"
	EnvDatabaseURL = "GEO_DATABASE_URL"
	EnvRegionsFile = "GEO_REGIONS_FILE"

	// GEO pipeline
	EnvAdminUserIDs     = "GEO_ADMIN_USER_IDS"
	EnvLookupTimeout    = "GEO_LOOKUP_TIMEOUT"
	EnvLookupWorkers    = "GEO_LOOKUP_WORKERS"
	EnvMaxRegions       = "GEO_MAX_REGIONS"
	EnvSkipIneligible   = "GEO_SKIP_INELIGIBLE"
	EnvMatchThreshold   = "GEO_MATCH_THRESHOLD"
	EnvSupportContact   = "GEO_SUPPORT_CONTACT"
	EnvBrand            = "GEO_BRAND"
	EnvWebsite          = "GEO_WEBSITE"
	EnvBotName          = "GEO_BOT_NAME"
	EnvBotIconURL       = "GEO_BOT_ICON_URL"
	EnvRequestLogMode   = "GEO_REQUEST_LOG_MODE"
	EnvRequestLogTeam   = "GEO_REQUEST_LOG_AGGREGATE_TEAM"
	EnvRequestLogTime   = "GEO_REQUEST_LOG_TIMEOUT"
	EnvRequestLogBuffer = "GEO_REQUEST_LOG_BUFFER"
	EnvRequestLogWork   = "GEO_REQUEST_LOG_WORKERS"

	// Rate Limits
	EnvGlobalRateRPS    = "GEO_GLOBAL_RATE_RPS"
	EnvUserRateBurst    = "GEO_USER_RATE_BURST"
	EnvUserRateRefill   = "GEO_USER_RATE_REFILL"
	EnvExportDailyLimit = "GEO_EXPORT_DAILY_LIMIT"

	// R2 Export Feature
	EnvR2AccountID       = "GEO_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "GEO_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "GEO_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "GEO_R2_BUCKET_NAME"
	EnvR2Endpoint        = "GEO_R2_ENDPOINT"
	EnvExportPrefix      = "GEO_EXPORT_PREFIX"
	EnvExportLinkTTL     = "GEO_EXPORT_LINK_TTL"
	EnvExportRetention   = "GEO_EXPORT_RETENTION"

	// Sentry Feature
	EnvSentryDSN         = "GEO_SENTRY_DSN"
	EnvSentryEnvironment = "GEO_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "GEO_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "GEO_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "GEO_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsUsername = "GEO_METRICS_USERNAME"
	EnvMetricsPassword = "GEO_METRICS_PASSWORD"
)
