// Package transport reads snapshot tables, application resources and
// manifests. FileFetcher serves a local tree and inflates ".gz" siblings;
// HTTPFetcher serves a remote base URL through resty on a retrying
// transport with rate limiting and a circuit breaker.
package transport
