// Package ratelimit paces requests to the platform API.
//
// TokenBucket refills to full capacity once per refill period. PerMinute
// builds the limiter used by the API client from requests_per_minute,
// where 0 disables pacing. Token requests are not paced.
//
// Usage:
//
//	limiter := ratelimit.PerMinute(60)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // ctx cancelled
//	}
//	// issue request
package ratelimit
