// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	templates    = template.Must(template.ParseFS(templateFS, "templates/*.html"))
	pageTemplate = templates.Lookup("page.html")
	appTemplate  = templates.Lookup("app")
)
