// Package app wires the companion's domain services (profile reconciliation,
// meal checklist, vision assessment) to their stores and manages their
// lifecycle.
package app
