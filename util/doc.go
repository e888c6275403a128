// Package util provides small generic helpers shared across dagflow:
// deterministic map key ordering and read-only map views.
package util
