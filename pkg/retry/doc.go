// Package retry provides backoff and retry logic for transient social client
// failures.
//
// Only typed errors from igbot/pkg/errors whose type is retryable (network,
// rate limit, server error) are retried by default; everything else returns
// immediately so workflows keep their fail-fast behaviour.
//
// Basic usage:
//
//	cfg := retry.FromSettings(appCfg.Retry, log).WithContext(ctx)
//	items, err := retry.DoWithResult(func() ([]social.MediaID, error) {
//		return client.UserMedia(ctx, username)
//	}, cfg)
//
// Wait is also used on its own by long-running loops that need a sleep which
// returns early when the context is cancelled.
package retry
