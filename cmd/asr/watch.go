package main

import (
	"time"

	"github.com/roelfdiedericks/speechkit/internal/app"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/pipeline"
	"github.com/roelfdiedericks/speechkit/internal/watch"
)

type watchCmd struct {
	Engine EngineFlags `embed:""`

	Dir      string `arg:"" type:"existingdir" help:"Directory to watch."`
	Existing bool   `help:"First transcribe audio files in the directory that have no transcript yet."`
}

func (c *watchCmd) Run(env *app.Env) error {
	provider, err := c.Engine.provider(env)
	if err != nil {
		return err
	}
	defer provider.Close()

	runner := &pipeline.Runner{STT: provider, Segmenter: env.Segmenter()}
	handle := func(path string) {
		res, err := pipeline.Wait(runner.Run(env.Ctx, pipeline.NewTranscribeJob(path)), func(msg string) { L_debug("asr: " + msg) })
		if err != nil {
			L_error("asr: transcription failed", "file", path, "error", err)
			return
		}
		L_info("asr: transcript saved", "path", res.Output, "sentences", res.Sentences, "elapsed", res.Elapsed.Round(time.Millisecond))
	}

	debounce := time.Duration(env.Config.Watch.DebounceMs) * time.Millisecond
	w, err := watch.NewWatcher(c.Dir, debounce, handle)
	if err != nil {
		return err
	}
	w.Start()
	L_info("asr: watching for audio files", "dir", c.Dir, "provider", provider.Name())

	if c.Existing {
		n, err := w.Backfill()
		if err != nil {
			w.Stop()
			return err
		}
		L_info("asr: transcribing existing files", "count", n)
	}

	<-env.Ctx.Done()
	L_info("asr: stopping watcher")
	return w.Stop()
}
