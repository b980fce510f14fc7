package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/toyz/kwargs/pkg/kwargs"
	"github.com/toyz/kwargs/pkg/kwargs/app"
)

var methodColors = map[string]*color.Color{
	"GET":    color.New(color.FgGreen, color.Bold),
	"POST":   color.New(color.FgYellow, color.Bold),
	"PUT":    color.New(color.FgBlue, color.Bold),
	"PATCH":  color.New(color.FgMagenta, color.Bold),
	"DELETE": color.New(color.FgRed, color.Bold),
}

var (
	pathColor  = color.New(color.FgCyan)
	dimColor   = color.New(color.Faint)
	titleColor = color.New(color.Bold, color.Underline)
)

// printRoutes writes one block per route listing its parameters by source
func printRoutes(w io.Writer, a *app.App) {
	titleColor.Fprintf(w, "%s %s\n\n", a.Config().Title, a.Config().Version)
	for _, r := range a.Routes() {
		method := fmt.Sprintf("%-7s", r.Method)
		if c, ok := methodColors[r.Method]; ok {
			method = c.Sprint(method)
		}
		fmt.Fprintf(w, "%s %s  %s\n", method, pathColor.Sprint(r.Path), dimColor.Sprint(r.Handler.Name))

		for _, def := range r.Model().Fields() {
			fmt.Fprintf(w, "        %-10s %-16s %-24s %s\n", def.ParamType, wireName(def), def.Annotation, describe(def))
		}
		if deps := r.Dependencies(); len(deps) > 0 {
			fmt.Fprintf(w, "        %s %s\n", dimColor.Sprint("resolves"), strings.Join(deps, ", "))
		}
		fmt.Fprintln(w)
	}
}

func wireName(def kwargs.ParameterDefinition) string {
	if def.FieldAlias != "" {
		return def.FieldAlias
	}
	return def.FieldName
}

func describe(def kwargs.ParameterDefinition) string {
	var notes []string
	if def.IsRequired {
		notes = append(notes, color.New(color.FgRed).Sprint("required"))
	} else if def.HasDefault() && def.DefaultValue != nil {
		notes = append(notes, fmt.Sprintf("default=%v", def.DefaultValue))
	}
	if def.ParamType == kwargs.BodyParam {
		notes = append(notes, def.MediaType.String())
	}
	if def.Description != "" {
		notes = append(notes, dimColor.Sprint(def.Description))
	}
	return strings.Join(notes, " ")
}

// printTypes lists the type names usable in route templates with the Go type
// each resolves to
func printTypes(w io.Writer) {
	for _, name := range kwargs.GetAllBuiltinTypes() {
		t, _ := kwargs.LookupType(name)
		fmt.Fprintf(w, "%-12s %s\n", name, dimColor.Sprint(t))
	}
}
