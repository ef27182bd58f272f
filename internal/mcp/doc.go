// Package mcp implements the Model Context Protocol transport: JSON-RPC 2.0
// framed one request per line over stdio, exposing remember, recall,
// forget, capabilities, and context_hydrate as tools.
package mcp
