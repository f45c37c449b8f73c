// Package core provides a small, stable facade over alertlens's internal
// engine for external integrations. It re-exports a narrow API surface so
// other tools can depend on a stable import path without importing internal
// packages.
//
// Example:
//
//	f, err := core.Analyze(ctx, "alerts/200025_001373", core.Options{})
//	if err != nil { /* handle */ }
//	_ = core.MarshalFindings(os.Stdout, []core.Finding{f})
package core
