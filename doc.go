// Package dockhand is a client for the Docker Engine API over TCP,
// TLS-wrapped TCP, or a local socket.
//
// The Docker type is the entry point. Resource groups hang off it:
//
//	docker, err := dockhand.NewFromEnv()
//	if err != nil {
//	    return err
//	}
//
//	containers, err := docker.Containers().List(ctx, nil)
//
// Streaming endpoints return lazy, pull-driven sequences from the stream
// package; interactive endpoints return a raw duplex connection produced by
// an HTTP protocol upgrade.
package dockhand
