/*
Package telemetry holds the vehicle data registry and the snapshot parser.

Snapshot tables are plain text, one value per line:

	VehicleSpeed (int, 4): 4200
	Latitude (double, 8): 37, 774929

Lines are split on "(", ")", "," and ":" and the tokens read as name,
type, size, (empty), value and an optional fraction that double values
rejoin with a decimal point. Binary entries are dropped. A table may
declare a filter that rewrites its raw lines first; the "gps" filter turns
the positional GPS dump into regular lines.

Parsed values land in a Registry under the lowercase id prefix+name. Each
write coerces the raw text, runs the post-processor registered for the id,
shifts the current value into previous and notifies listeners with the
resulting event.
*/
package telemetry
