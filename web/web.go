// Package web embeds the HTML templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Templates holds the page templates with partials/ alongside them.
func Templates() fs.FS { return sub("templates") }

// Static holds the CSS and JavaScript served under /static/.
func Static() fs.FS { return sub("static") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		// Only reachable if the embed pattern above changes.
		panic(err)
	}
	return f
}
