// Package hierarchy rebuilds the parent/child ownership tree of a
// subscriber's assets and answers traversal questions over it.
//
// Assets are held in a slice and linked by index. Parent references that
// do not resolve produce dangling roots, and parent chains that loop are
// rejected with HierarchyCycleError.
package hierarchy
