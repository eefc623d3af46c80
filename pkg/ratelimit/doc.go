// Package ratelimit throttles calls into the social client.
//
// Both implementations are built on golang.org/x/time/rate:
//
// TokenBucket:
//   - Continuous refill at requests-per-minute with a configurable burst
//   - Guards every HTTP request made by the Instagram adapter
//
// Pacer:
//   - Burst of one, so consecutive actions are spaced by a fixed interval
//   - Used between bulk message sends (for example the CSV workflow's
//     once-per-864s cadence)
//
// Wait takes a context so a Ctrl-C interrupts a long pause.
package ratelimit
