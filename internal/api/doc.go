// Package api provides the HTTP REST server for the device registry.
//
// It exposes device reads and command submission to external clients.
// Command submissions run through the same pipeline the bus listener
// uses, so the two paths cannot drift apart.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
