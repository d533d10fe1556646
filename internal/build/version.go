// Package build holds the automeet version, in a leaf package so that
// anything can import it without dependency cycles.
package build

// Version contains the current semantic version of automeet.
const Version = "0.3.0"
