// Package locales embeds the built message bundles served by the API.
// Sources live next to this file as <area>_<lang>.json and are merged into
// build/<lang>.json by tools/build_locales.
package locales

import "embed"

// Build holds build/<lang>.json.
//
//go:embed build/*.json
var Build embed.FS

// BuildDir is the directory inside Build that holds the bundles.
const BuildDir = "build"
