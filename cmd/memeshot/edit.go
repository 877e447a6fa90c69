package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/memeshot/internal/editor"
)

// runEditor opens the editor window. Tests replace it.
var runEditor = func(e *editor.Editor) { e.Run() }

type editCmd struct {
	*subcommand
	img imageFlags
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	c := &editCmd{subcommand: newSubcommand(r, "edit")}
	c.img.register(c.fs)
	if err := c.parse(c, args); err != nil {
		return nil, err
	}
	if c.fs.NArg() == 1 && c.img.file == "" && c.img.source == "" {
		c.img.file = c.fs.Arg(0)
	} else if c.fs.NArg() > 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *editCmd) Run() error {
	ctx := context.Background()
	sess, err := c.r.newSession()
	if err != nil {
		return err
	}
	title := "memeshot"
	if err := loadImage(ctx, sess, &c.img); err != nil && !errors.Is(err, errNoImageFlag) {
		return err
	}
	if ref := sess.Ref(); ref != "" {
		title = fmt.Sprintf("memeshot - %s", ref)
	}
	runEditor(editor.New(editor.NewController(ctx, sess), title))
	return nil
}
