// Package stream turns engine response bodies into lazily-pulled sequences:
// raw byte chunks, top-level JSON values, or demultiplexed stdout/stderr
// frames. All sequences are single-pass, deliver items in strict wire order,
// and terminate permanently on the first error.
package stream
