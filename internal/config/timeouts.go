package config

import "time"

// LINE acknowledges the webhook before processing starts, and the loading
// indicator stays up for at most 60 seconds, so every per-event budget below
// has to fit inside WebhookProcessing.
const (
	WebhookProcessing       = 30 * time.Second
	LoadingAnimationSeconds = 30 // 5-60, step 5

	WebhookHTTPRead  = 10 * time.Second
	WebhookHTTPWrite = 15 * time.Second
	WebhookHTTPIdle  = 2 * time.Minute
)

// Per-event budgets.
const (
	DirectoryLookup = 5 * time.Second  // one region against the directory
	ProfileFetch    = 3 * time.Second  // display name for the greeting
	ExportUpload    = 20 * time.Second // build + upload one workbook
	RequestLogWrite = 10 * time.Second // one async log batch
)

const (
	DatabaseBusyTimeout     = 30 * time.Second
	DatabaseConnMaxLifetime = time.Hour
)

// Background work.
const (
	RateLimiterCleanupInterval = 5 * time.Minute
	ExportSweepInterval        = time.Hour
	ExportSweep                = 2 * time.Minute
	ReadinessCheckTimeout      = 2 * time.Second

	// GracefulShutdown covers in-flight webhooks and draining the request log.
	GracefulShutdown = 30 * time.Second
)
