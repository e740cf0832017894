// Package plugins hosts plugin implementation subpackages. It intentionally
// contains no production runtime code itself; this file exists to satisfy
// tooling for the architectural guard tests that live alongside it.
package plugins
