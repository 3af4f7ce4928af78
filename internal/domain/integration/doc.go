// Package integration defines the vendor-neutral marketplace order shape and
// the ports adapters implement. Vendor clients live outside this module; they
// only need to produce NormalizedOrder values.
package integration
