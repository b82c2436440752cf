// Package orderfeed reads the paginated order search feed.
//
// Client fetches one page per call. Pager walks pages lazily through the
// opaque continuation token and stops for exactly one reported reason: the
// token is absent, the page cap was reached, the API failed, or the context
// ended. A Pager cannot be restarted.
package orderfeed
