// Package types provides shared data structures for the casdk runtime.
//
// This package defines the vocabulary used across the lifecycle manager,
// the telemetry registry and the subscription dispatcher, so that none of
// those packages need to import each other for plain data.
//
// Core Types:
//   - Value: coerced telemetry value (null, int, float, string)
//   - Event: change notification for one canonical value id
//   - Trigger: subscription condition (ANY, CHANGED, GREATER, LESSER, EQUAL)
//   - State: application lifecycle state
//   - Region: head unit market region
//   - MenuItem: host menu entry
//
// Errors:
//   - ErrParse, ErrUnsupportedTable, ErrHookFailure, ErrResourceLoad, ...
//
// Example Usage:
//
//	v := types.Coerce(" 100 ")
//	v.Kind()  // types.KindInt
//	v.Equal(types.FloatValue(100)) // true
package types
