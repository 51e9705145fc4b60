package main

import (
	"os"

	"github.com/alecthomas/kong"
)

type Command struct {
	Format  string          `help:"Export format of the input (${enum})." enum:"auto,plain,sklearn" default:"auto" short:"f"`
	Verbose bool            `help:"Enable verbose output." short:"v"`
	Outline *OutlineCommand `cmd:"outline" help:"Print a decision tree as an outline."`
	Walk    *WalkCommand    `cmd:"walk" help:"Answer the questions of a decision tree interactively."`
	Export  *ExportCommand  `cmd:"export" help:"Convert a decision tree to YAML or JSON."`
}

func main() {
	command := new(Command)
	ctx := kong.Parse(
		command,
		kong.Name("treectl"),
		kong.Description("Decision tree navigator"),
		kong.UsageOnError(),
	)
	app := NewApp(command.Format, command.Verbose, os.Stdin, os.Stdout)
	defer app.Log.Sync()

	err := ctx.Run(app)
	ctx.FatalIfErrorf(err)
}
