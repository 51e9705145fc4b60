package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tree_nav/internal/console"
	"tree_nav/internal/domain/tree"
	"tree_nav/internal/navigator"
	"tree_nav/internal/outline"
	"tree_nav/internal/parser"
)

const stdinName = "-"

type App struct {
	Format string
	In     io.Reader
	Out    io.Writer
	Log    *zap.SugaredLogger
}

func NewApp(format string, verbose bool, in io.Reader, out io.Writer) *App {
	log := zap.NewNop()
	if verbose {
		if dev, err := zap.NewDevelopment(); err == nil {
			log = dev
		}
	}
	return &App{
		Format: format,
		In:     in,
		Out:    out,
		Log:    log.Sugar(),
	}
}

// load parses file, or the app input when file is "-".
func (a *App) load(file string) (*tree.Tree, error) {
	classifier, err := parser.ClassifierFor(a.Format)
	if err != nil {
		return nil, err
	}

	src := a.In
	if file != stdinName {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}

	t, err := parser.ParseReader(src, parser.WithClassifier(classifier))
	if err != nil {
		return nil, err
	}
	stats := t.Stats()
	a.Log.Debugw("parsed tree", "file", file, "nodes", stats.Nodes, "leaves", stats.Leaves, "depth", stats.Depth)
	return t, nil
}

type OutlineCommand struct {
	File string `arg:"" optional:"" help:"Tree export to read, - for stdin." default:"-"`
}

func (c *OutlineCommand) Run(app *App) error {
	t, err := app.load(c.File)
	if err != nil {
		return err
	}
	return outline.Write(app.Out, t)
}

type WalkCommand struct {
	File string `arg:"" help:"Tree export to read." type:"existingfile"`
}

func (c *WalkCommand) Run(app *App) error {
	t, err := app.load(c.File)
	if err != nil {
		return err
	}
	_, err = console.Walk(app.In, app.Out, navigator.Load(t))
	return err
}

type ExportCommand struct {
	File   string `arg:"" optional:"" help:"Tree export to read, - for stdin." default:"-"`
	Output string `help:"Output encoding (${enum})." enum:"yaml,json" default:"yaml" short:"o"`
}

func (c *ExportCommand) Run(app *App) error {
	t, err := app.load(c.File)
	if err != nil {
		return err
	}

	switch c.Output {
	case "json":
		enc := json.NewEncoder(app.Out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case "yaml":
		enc := yaml.NewEncoder(app.Out)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}
}
