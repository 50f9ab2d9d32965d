// Package renderer finds the Chromium renderer process to profile.
//
// A single browser launch spawns many helpers: GPU, network, extension hosts,
// and a zygote that forks the sandboxed renderers. Only the renderer drawing
// the requested page is worth profiling. [Locator.Find] walks the process
// tree below the browser, classifies each child with [Classify], unwraps
// zygote layers, and picks the renderer with the most CPU time, since the
// page being loaded is the busiest one.
//
// The tree is read through a [Table], so the walk can be driven by the live
// process table ([NewProcTable]) or by a synthetic one in tests:
//
//	loc := renderer.NewLocator(renderer.NewProcTable(),
//	    renderer.WithTimeout(time.Second),
//	)
//	pid, err := loc.Poll(ctx, int32(browser.Pid()))
package renderer
