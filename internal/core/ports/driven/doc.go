// Package driven defines the outbound ports: interfaces the core
// services depend on, implemented by adapters for external systems
// (the inference endpoint, the search index, local storage).
//
// # Import Rules
//
//   - Can Import: internal/core/domain, standard library
//   - Cannot Import: adapters, services
package driven
