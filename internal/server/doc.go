// Package server implements the network surface of the roomchat relay.
//
// The implementation is organized into specialized files for configuration,
// the session hub, the TCP listener, routing and HTTP handlers. Chat
// semantics live in the chat and session packages; this package only accepts
// connections and hands them over.
package server
