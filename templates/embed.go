// Package templates embeds the default configuration files written by
// towerd init.
package templates

import "embed"

//go:embed config.yaml env.example
var FS embed.FS
