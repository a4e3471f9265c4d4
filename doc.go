// Package flowcard renders data-bound cards.
//
// The pipeline resolves a card definition (package asset), rewrites
// its placeholder leaves against the invocation's namespaces
// (packages bind, expr, and tmpl), validates the structure (package
// validate), and translates user interactions into explicit state
// updates (packages interact and store).  Package render ties the
// pieces together, and the command-line tools are in cmd.
package flowcard
