// Package registry holds every known module record for a runtime.
//
// The Registry is a pure data store: it enforces name uniqueness, keeps
// modules in registration order and accumulates the set of names that any
// module has ever listed as a requirement. It performs no resolution itself;
// that is the job of the resolver package.
//
// Records are never removed. The registry carries its own lock so that
// initializers, which run while the runtime is busy resolving, can still look
// other modules up through the read-only Accessor view.
package registry
