// Command casdk runs the custom application runtime and ships tooling to
// inspect snapshot dumps and application manifests.
package main
