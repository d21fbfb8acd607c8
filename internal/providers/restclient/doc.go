// Package restclient is the HTTP client shared by the REST-backed
// integrations.
//
// Requests go through a token-bucket rate limiter, then a circuit breaker,
// then resty over a retryablehttp transport. Client errors (400, 404, 409,
// 422) come back as INVALID_PARAMS and do not count against the breaker;
// an open breaker comes back as SERVICE_UNAVAILABLE.
package restclient
