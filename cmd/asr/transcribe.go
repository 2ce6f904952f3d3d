package main

import (
	"errors"
	"fmt"

	"github.com/roelfdiedericks/speechkit/internal/app"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/pipeline"
	"github.com/roelfdiedericks/speechkit/internal/stt"
)

// EngineFlags override the configured STT selection.
type EngineFlags struct {
	Provider  string `short:"p" help:"STT provider (${providers})."`
	Language  string `short:"l" help:"Language code (${languages}); multi detects automatically."`
	ModelSize string `help:"whisper.cpp model size: tiny, base, small, medium, large or turbo."`
}

// provider applies the flags to the config and creates the provider.
func (f EngineFlags) provider(env *app.Env) (stt.Provider, error) {
	cfg := env.Config.STT
	if f.Provider != "" {
		cfg.Provider = f.Provider
	}
	if f.Language != "" {
		cfg.Language = f.Language
	}
	if f.ModelSize != "" {
		cfg.WhisperCpp.Size = f.ModelSize
		cfg.WhisperCpp.Model = ""
	}
	return stt.New(cfg)
}

type transcribeCmd struct {
	Engine EngineFlags `embed:""`

	Files  []string `arg:"" type:"existingfile" help:"Audio files to transcribe."`
	Output string   `short:"o" type:"path" help:"Output file; only valid with a single input."`
	Print  bool     `help:"Also print each transcript to stdout."`
}

func (c *transcribeCmd) Run(env *app.Env) error {
	if c.Output != "" && len(c.Files) > 1 {
		return fmt.Errorf("--output needs exactly one input file")
	}

	provider, err := c.Engine.provider(env)
	if err != nil {
		return err
	}
	defer provider.Close()

	runner := &pipeline.Runner{STT: provider, Segmenter: env.Segmenter()}
	var errs []error
	for _, file := range c.Files {
		if env.Ctx.Err() != nil {
			return env.Ctx.Err()
		}
		job := pipeline.NewTranscribeJob(file)
		job.Output = c.Output

		res, err := pipeline.Wait(runner.Run(env.Ctx, job), func(msg string) { L_info("asr: " + msg) })
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
			continue
		}
		L_info("asr: transcript saved", "path", res.Output, "sentences", res.Sentences)
		if c.Print {
			fmt.Println(res.Text)
		}
	}
	return errors.Join(errs...)
}
