// Package api implements the HTTP REST API and WebSocket server for Aerion Control.
//
// This package provides:
//   - REST endpoints for device registry CRUD and user nodes
//   - Connectivity probes for registered and ad-hoc devices, with history
//   - Read/write access to the OPC-UA server settings document
//   - Network interface listing for the server's bind address
//   - WebSocket hub that republishes relay events and probe results
//   - Prometheus exposition at /metrics
//
// # Architecture
//
// The API replaces the desktop shell that used to sit in front of the
// OPC-UA server. Registry and settings changes are written to the JSON
// documents the server reads; notifications the server sends over the
// relay bridge reach WebSocket clients through the Hub, which is a
// relay.Subscriber.
//
// # Graceful Degradation
//
// Every collaborator except the registry is optional. Routes whose
// collaborator is missing answer 503.
package api
