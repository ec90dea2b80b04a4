// Package dev provides the preview server and hot reload functionality.
//
// This package implements:
//   - File watching for pages, component definitions, and assets
//   - Page rendering with root components mounted
//   - WebSocket-based browser refresh
//   - Error overlay in browser
//
// # Architecture
//
// The preview server consists of several components:
//
//   - Watcher: Monitors the file system through fsnotify
//   - Server: Renders pages and serves static files on a chi router
//   - ReloadServer: Notifies browsers of changes via WebSocket
//
// # Usage
//
//	srv := dev.NewServer(dev.ServerOptions{
//	    Config: cfg,
//	    Loader: loader,
//	})
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration
//
// Hot reload can be disabled in gallia.yaml (dev.hot_reload: false).
// The page directory and the components directory are always watched,
// plus any entries in dev.watch.
//
// # Hot Reload Protocol
//
// The browser connects to /_gallia/reload via WebSocket.
// Messages are JSON-encoded:
//
//	{"type": "reload"}              // Triggers full page reload
//	{"type": "css"}                 // Triggers CSS-only reload
//	{"type": "error", "error": "..."} // Shows error overlay
//	{"type": "clear"}               // Clears error overlay
//
// A page whose components failed to mount is still served; the errors are
// shown in the overlay once the reload client connects.
package dev
