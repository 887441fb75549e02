// Package service orchestrates the core components of the exchange —
// market engines, WAL, fill store and event stream. It is the only
// write entry point, decoupled from network transports like gRPC.
package service
