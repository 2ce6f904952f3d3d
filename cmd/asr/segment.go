package main

import (
	"fmt"
	"io"
	"os"

	"github.com/roelfdiedericks/speechkit/internal/app"
)

type segmentCmd struct {
	File string `arg:"" optional:"" type:"existingfile" help:"Text file; reads stdin when omitted."`
}

func (c *segmentCmd) Run(env *app.Env) error {
	var (
		data []byte
		err  error
	)
	if c.File == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(c.File)
	}
	if err != nil {
		return err
	}

	if out := env.Segmenter().Format(string(data)); out != "" {
		fmt.Println(out)
	}
	return nil
}
