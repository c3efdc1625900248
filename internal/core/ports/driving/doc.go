// Package driving defines the inbound ports: the operations the CLI,
// TUI and web adapters invoke on the core services.
package driving
