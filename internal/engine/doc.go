// Package engine runs the content-analysis pipeline for alert bundles. It
// classifies each bundle, extracts what happened and how much, scores the
// result and assembles a validated Finding. It also discovers alert
// directories under a root and analyzes them with a bounded worker pool.
// This package is internal; external consumers should use the stable facade
// in pkg/core.
package engine
