// Package resolver implements spec.md §4.5: cache probing (§4.3), the
// save/load policy, and handing a resolved work tree to a Backend.
//
// The flow is validate, resolve inputs, compute the unique key, check the
// cache, then replay or execute and cache, kept backend-agnostic so all
// three backends in internal/backend share this package's cache gate and
// save/load policy.
package resolver
