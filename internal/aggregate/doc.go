// Package aggregate reduces rule outcomes to an overall status and
// summarizes batches.
package aggregate
