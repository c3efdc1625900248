// Package services implements the driving port interfaces: the
// retrieval and generation chain behind Ask, the ingestion pipeline,
// and the diagnostics runner. Services hold the orchestration logic
// and talk to the outside world only through driven ports.
package services
