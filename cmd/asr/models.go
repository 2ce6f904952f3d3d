package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/roelfdiedericks/speechkit/internal/app"
	"github.com/roelfdiedericks/speechkit/internal/paths"
	"github.com/roelfdiedericks/speechkit/internal/stt"
)

type modelsCmd struct {
	List     modelsListCmd     `cmd:"" default:"1" help:"List the model catalog and what is downloaded."`
	Download modelsDownloadCmd `cmd:"" help:"Download a model by size or file name."`
}

func modelsDir(env *app.Env) (string, error) {
	dir := env.Config.STT.WhisperCpp.ModelsDir
	if dir == "" {
		dir = paths.DefaultWhisperModelsDir()
	}
	return paths.ExpandTilde(dir)
}

type modelsListCmd struct{}

func (c *modelsListCmd) Run(env *app.Env) error {
	dir, err := modelsDir(env)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIZE\tFILE\tDESCRIPTION\tDOWNLOAD\tSTATUS")
	for _, m := range stt.ListModels(dir) {
		status := "-"
		if m.Downloaded {
			status = "downloaded"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Size, m.Name, m.Label, humanize.Bytes(uint64(m.SizeBytes)), status) // #nosec G115
	}
	fmt.Fprintf(tw, "\nmodels directory: %s\n", dir)
	return tw.Flush()
}

type modelsDownloadCmd struct {
	Model string `arg:"" optional:"" help:"Model size (tiny, base, ...) or file name; defaults to the configured size."`
}

func (c *modelsDownloadCmd) Run(env *app.Env) error {
	name := c.Model
	if name == "" {
		resolved, err := stt.ResolveModel(env.Config.STT.WhisperCpp)
		if err != nil {
			return err
		}
		name = resolved
	}
	model := stt.GetModel(name)
	if model == nil {
		return fmt.Errorf("unknown model %q; see 'asr models list'", name)
	}

	dir, err := modelsDir(env)
	if err != nil {
		return err
	}
	path, err := stt.DownloadModel(env.Ctx, model, dir)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
