// Package logger provides the structured logging interface used across the crawler.
//
// It wraps zerolog behind a small Logger interface:
// - Leveled logging (Debug, Info, Warn, Error, Fatal)
// - Structured fields via WithField/WithFields or the *WithFields methods
// - Pretty console output on stderr, or JSON lines with Format "json"
// - An optional log file that always receives JSON lines
// - A global logger for components constructed without one
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Crawl started", map[string]interface{}{
//	    "subreddits": cfg.Query.Subreddits,
//	})
//
// Tests use NewNopLogger to discard output or NewTestLogger to capture
// messages for assertions.
package logger
