// Package app implements custom application instances and the lifecycle
// manager that switches between them.
//
// An Instance moves through uninitialized, initializing, created, focused,
// lost and terminated. Initialization loads the application's scripts,
// styles and images, subscribes to region changes and runs the created
// hook. Only the manager's active application receives data updates and
// controller events.
package app
