// Package constants centralizes defaults shared across the CLI, the API and
// the detectors.
//
// Probe timeouts, upstream endpoints, read limits and verdict thresholds
// live here so cmd/ can expose them as configuration defaults without the
// detector packages importing cmd/.
package constants
