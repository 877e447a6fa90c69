package main

import (
	"fmt"

	"github.com/example/memeshot/internal/config"
)

type configCmd struct {
	*subcommand
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	c := &configCmd{subcommand: newSubcommand(r, "config")}
	if err := c.parse(c, args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}
	switch args[0] {
	case "print":
		fmt.Fprint(c.r.stdout, c.r.config.String())
		return nil
	case "save":
		return c.runSave()
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

func (c *configCmd) runSave() error {
	// Save over the file that was loaded, otherwise the XDG default.
	path := config.NewLoader(version, configPathOverride).GetConfigPath()
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to get user home dir: %w", err)
		}
		path = p
	}
	if err := config.Save(c.r.config, path); err != nil {
		return err
	}
	fmt.Fprintf(c.r.stderr, "Configuration saved to %s\n", path)
	return nil
}
