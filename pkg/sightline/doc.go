// Package sightline holds types shared across the session engine:
// the error taxonomy and the library version.
package sightline

// Version is the library version, set at release time.
const Version = "0.3.1"
