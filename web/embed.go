// Package web carries the page templates and browser assets compiled into the
// portal binary.
package web

import "embed"

// Templates holds layouts, partials and pages.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static holds CSS and the session script served under /static/.
//
//go:embed static/**/*
var Static embed.FS
