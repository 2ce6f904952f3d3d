// asr transcribes audio files to text, one sentence per line.
package main

import (
	"strings"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/speechkit/internal/app"
	"github.com/roelfdiedericks/speechkit/internal/stt"
)

type CLI struct {
	Globals app.Flags `embed:""`

	Transcribe transcribeCmd `cmd:"" help:"Transcribe audio files to <name>.txt next to each input."`
	Watch      watchCmd      `cmd:"" help:"Transcribe audio files as they appear in a directory."`
	Models     modelsCmd     `cmd:"" help:"List or download whisper.cpp models."`
	Segment    segmentCmd    `cmd:"" help:"Split text from a file or stdin into one sentence per line."`
	Init       initCmd       `cmd:"" help:"Write a config file with the default settings."`
	Stats      app.StatsCmd  `cmd:"" help:"Show timing and success metrics of past jobs."`
}

func main() {
	var cli CLI
	app.Main("asr", "Speech recognition with whisper.cpp, NVIDIA Riva, OpenAI, Groq or Google.", &cli, &cli.Globals,
		kong.Vars{
			"providers": strings.Join(stt.Providers, ", "),
			"languages": strings.Join(stt.Languages, ", "),
		})
}
