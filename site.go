package clovis

import "embed"

// Site holds the starter site that `clovis init` writes out: the page
// templates, the static assets and a default config.
//
//go:embed templates static clovis.config.yml
var Site embed.FS
