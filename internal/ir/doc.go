// Package ir provides the shared data model for the validator.
//
// Orders, assets, rule outcomes and validation results are defined here so
// every other internal package can depend on ir without depending on each
// other. ir imports nothing internal.
//
// Key design constraints:
//   - Field values are a sealed set (Null, String, Number, Bool); nested
//     documents are rejected at decode time
//   - All JSON tags use snake_case
//   - Results are content-addressed through canonical JSON so identical
//     input produces an identical digest
package ir
