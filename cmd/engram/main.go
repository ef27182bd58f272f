// Command engram is a local, single-node memory store for AI coding agents:
// a CLI, an HTTP/JSON API, and a JSON-RPC-over-stdio tool server, all backed
// by one SQLite file.
package main

func main() {
	Execute()
}
