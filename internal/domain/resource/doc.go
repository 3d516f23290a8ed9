// Package resource loads the scripts, stylesheets and images an
// application declares in its manifest.
//
// Every entry loads concurrently under its own deadline. A failed or
// expired entry still counts toward completion and carries its error, so
// callers always get one Item per manifest entry, in manifest order.
package resource
