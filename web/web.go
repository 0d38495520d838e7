// Package web embeds the HTML templates so the binary runs from any
// working directory.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS
