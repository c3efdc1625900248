// Package connectors provides implementations of the Connector interface
// for document sources. Each connector knows how to enumerate and load
// documents from one source type; filesystem is currently the only one.
package connectors
