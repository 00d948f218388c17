// Package selector picks the one order to validate for a subscriber and
// maps its raw type to a declared order type.
package selector
