package main

import (
	"fmt"
	"os"

	"github.com/roelfdiedericks/speechkit/internal/app"
	"github.com/roelfdiedericks/speechkit/internal/config"
	"github.com/roelfdiedericks/speechkit/internal/paths"
)

type initCmd struct {
	Global bool `help:"Write ~/.speechkit/speechkit.json instead of ./speechkit.json."`
	Force  bool `help:"Overwrite an existing file (the old one is kept as a backup)."`
}

func (c *initCmd) Run(_ *app.Env) error {
	path := paths.ConfigFileName
	if c.Global {
		p, err := paths.DataPath(paths.ConfigFileName)
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	}

	cfg := config.Defaults()
	if err := config.Save(&cfg, path); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
