// Package catalog discovers installed applications on disk.
//
// Each application lives in its own directory under the apps root with an
// app.yaml, app.toml or app.json manifest:
//
//	id: speedo
//	title: Speedometer
//	settings:
//	  statusbar: true
//	require:
//	  js: [app.js]
//	  css: [app.css]
//	  images:
//	    needle: needle.png
package catalog
