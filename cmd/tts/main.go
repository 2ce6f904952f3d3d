// tts speaks text files into WAV audio.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/speechkit/internal/app"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/pipeline"
	"github.com/roelfdiedericks/speechkit/internal/tts"
)

type CLI struct {
	Globals app.Flags `embed:""`

	Synthesize synthesizeCmd `cmd:"" help:"Synthesize text files to <name>.wav next to each input."`
	Voices     voicesCmd     `cmd:"" help:"List the voices of a provider."`
	Stats      app.StatsCmd  `cmd:"" help:"Show timing and success metrics of past jobs."`
}

type synthesizeCmd struct {
	Files    []string `arg:"" type:"existingfile" help:"Text files to speak."`
	Provider string   `short:"p" help:"TTS provider (${providers})."`
	Voice    string   `short:"v" help:"Voice: a piper .onnx file, a Magpie voice (Aria, Leo, ...) or an OpenAI voice."`
	Language string   `short:"l" help:"Language code; detected from the text when omitted."`
	Output   string   `short:"o" type:"path" help:"Output file; only valid with a single input."`
}

func (c *synthesizeCmd) Run(env *app.Env) error {
	if c.Output != "" && len(c.Files) > 1 {
		return fmt.Errorf("--output needs exactly one input file")
	}

	cfg := env.Config.TTS
	if c.Provider != "" {
		cfg.Provider = c.Provider
	}
	language := c.Language
	if language == "" {
		language = cfg.Language
	}

	provider, err := tts.New(cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	runner := &pipeline.Runner{TTS: provider}
	var errs []error
	for _, file := range c.Files {
		if env.Ctx.Err() != nil {
			return env.Ctx.Err()
		}
		job := pipeline.NewSynthesizeJob(file)
		job.Output = c.Output
		job.Voice = c.Voice
		job.Language = language

		res, err := pipeline.Wait(runner.Run(env.Ctx, job), func(msg string) { L_info("tts: " + msg) })
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
			continue
		}
		L_info("tts: audio saved", "path", res.Output, "duration", res.Duration)
	}
	return errors.Join(errs...)
}

type voicesCmd struct {
	Provider string `short:"p" help:"TTS provider; defaults to the configured one."`
}

func (c *voicesCmd) Run(env *app.Env) error {
	cfg := env.Config.TTS
	if c.Provider != "" {
		cfg.Provider = c.Provider
	}
	voices, err := tts.ListVoices(cfg)
	if err != nil {
		return err
	}
	if len(voices) == 0 && (cfg.Provider == "piper" || cfg.Provider == "local") {
		L_warn("tts: no piper voices installed", "dir", cfg.Piper.ModelsDir)
	}
	for _, v := range voices {
		fmt.Println(v)
	}
	return nil
}

func main() {
	var cli CLI
	app.Main("tts", "Text to speech with Piper, NVIDIA Riva Magpie or OpenAI.", &cli, &cli.Globals,
		kong.Vars{"providers": strings.Join(tts.Providers, ", ")})
}
