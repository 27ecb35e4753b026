package web

import "embed"

// TemplatesFS holds the page, partial and layout templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the intro chart script.
//
//go:embed static/*
var StaticFS embed.FS
