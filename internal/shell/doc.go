// Package shell talks to the head unit's host framework.
//
// Launching an application means routing four framework messages
// (LaunchMessages) and mounting the application's view on the Stage. The
// HTTPRouter posts messages and console log lines to a shell bridge; the
// Recorder keeps them in memory when no bridge is configured.
package shell
