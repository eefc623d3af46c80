// Package logger provides the structured logging interface used across igbot.
//
// It wraps zerolog with a small interface so workflows can be tested against
// the recording TestLogger. Console output is coloured and goes to stderr so
// interactive prompts on stdout stay readable; an optional file receives the
// same lines as JSON.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("workflow", "repost")
//	log.InfoWithFields("Media reposted", map[string]interface{}{
//	    "media_id": id,
//	})
//
// Every line carries app, version and a per-process run_id.
package logger
