// Package retry executes fallible operations with bounded retries and
// exponential backoff.
//
// The remote provider API is reached over the public internet, so transient
// transport failures are expected. Do wraps a single operation and re-runs it
// until it succeeds, the attempt budget is exhausted, or the context is
// cancelled.
//
// # Retriable errors
//
// Not every failure deserves a retry. The Config.Retriable classifier decides
// per error; the default classifier (DefaultRetriable) allows transport
// errors, HTTP 5xx and HTTP 429, and rejects everything else — notably
// authorization failures and response-decoding failures, which will not get
// better on a second attempt.
//
// # Usage
//
//	cfg := retry.DefaultConfig()
//	cfg.OnRetry = func(err error) { log.Warn("retrying", zap.Error(err)) }
//	subs, err := retry.Do(ctx, cfg, func(ctx context.Context) ([]Subscription, error) {
//	    return client.Subscriptions(ctx)
//	})
package retry
