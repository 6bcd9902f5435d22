// Package hcl_adapter reads module manifests written in HCL and turns their
// definitions into module initializers.
//
// A manifest holds any number of module blocks:
//
//	module "b" {
//	  description = "One more than a."
//	  requires    = ["a"]
//	  value       = module.a + 1
//	}
//
// A block sets at most one of handler, naming a compiled-in Go handler, or
// value, an expression evaluated once the requirements are initialized. The
// expression sees the requirement results as the module object and as the
// args tuple, in declared order.
package hcl_adapter
