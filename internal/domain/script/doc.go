// Package script runs JavaScript applications on goja.
//
// Each application instance gets its own VM. Scripts see an app object
// (id, location, subscribe, unsubscribe, getSetting, getRegion, getTitle),
// a log object (debug, info, error) and the trigger constants ANY, CHANGED,
// GREATER, LESSER and EQUAL. Global functions named created, focused, lost,
// onRegionChange and onControllerEvent become the instance's hooks.
//
// Every evaluation and call is bounded by Config.Timeout:
//
//	engine := script.NewEngine(script.DefaultConfig())
//	manager := app.NewManager(app.WithScriptEngine(engine), ...)
package script
