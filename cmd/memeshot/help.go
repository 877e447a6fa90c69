package main

import (
	"bytes"
	"embed"
	"flag"
	"fmt"
	"log"
	"sync"
	"text/template"
)

//go:embed templates/*.txt
var helpFS embed.FS

var (
	helpOnce sync.Once
	helpTmpl *template.Template
)

func parseHelpTemplates() {
	helpTmpl = template.Must(template.New("").Funcs(map[string]any{
		"flags": func(fs *flag.FlagSet) []flagInfo {
			result := []flagInfo{}
			fs.VisitAll(func(f *flag.Flag) {
				result = append(result, flagInfo{f.Name, f.DefValue, f.Usage})
			})
			return result
		},
	}).ParseFS(helpFS, "templates/*.txt"))
}

type flagInfo struct {
	Name     string
	DefValue string
	Usage    string
}

type HelpData interface {
	Program() string
	Template() string
	FlagSet() *flag.FlagSet
}

type UsageError struct {
	of HelpData
}

func (e *UsageError) Error() string {
	help, err := e.renderHelp()
	if err != nil {
		return err.Error()
	}
	return help
}

func (e *UsageError) renderHelp() (string, error) {
	helpOnce.Do(parseHelpTemplates)
	var buf bytes.Buffer
	if err := helpTmpl.ExecuteTemplate(&buf, e.of.Template(), e.of); err != nil {
		log.Printf("error rendering help template: %v", err)
		return "", err
	}
	return buf.String(), nil
}

// usageFunc prints the rendered help for h to its flag set's output.
func usageFunc(h HelpData) func() {
	return func() {
		help, err := (&UsageError{of: h}).renderHelp()
		if err != nil {
			return
		}
		fmt.Fprint(h.FlagSet().Output(), help)
	}
}

func (r *root) Template() string { return "root.txt" }
func (c *renderCmd) Template() string { return "render.txt" }
func (c *editCmd) Template() string { return "edit.txt" }
func (c *interactiveCmd) Template() string { return "interactive.txt" }
func (c *serveCmd) Template() string { return "serve.txt" }
func (c *historyCmd) Template() string { return "history.txt" }
func (c *configCmd) Template() string { return "config.txt" }
func (v *versionCmd) Template() string { return "version.txt" }
