// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// One run loads the manifests under the configured paths, registers their
// modules with a fresh runtime, optionally fetches missing requirements, and
// fires the bulk run. In watch mode it then keeps registering modules from
// new or changed manifests until the context is cancelled.
package app
