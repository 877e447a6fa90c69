package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/example/memeshot/internal/compositor"
	"github.com/example/memeshot/internal/imagesource"
	"github.com/example/memeshot/internal/session"
)

var errNoImageFlag = errors.New("no image given: use -image or -source")

type renderCmd struct {
	*subcommand
	img      imageFlags
	filter   string
	frame    string
	captions captionList
	output   string
	save     bool
	share    bool
}

func parseRenderCmd(args []string, r *root) (*renderCmd, error) {
	c := &renderCmd{subcommand: newSubcommand(r, "render")}
	c.img.register(c.fs)
	c.fs.StringVar(&c.filter, "filter", "none", "colour filter: none, grayscale, sepia or brightness")
	c.fs.StringVar(&c.frame, "frame", "none", "frame: none, square or circle")
	c.fs.Var(&c.captions, "caption", "caption as x,y,color,size,text (repeatable)")
	c.fs.StringVar(&c.output, "output", "", "write the PNG to this file, or - for stdout")
	c.fs.BoolVar(&c.save, "save", false, "save to the documents folder")
	c.fs.BoolVar(&c.share, "share", false, "share through the configured targets")
	if err := c.parse(c, args); err != nil {
		return nil, err
	}
	if c.fs.NArg() > 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *renderCmd) Run() error {
	ctx := context.Background()
	filter, err := compositor.ParseFilter(c.filter)
	if err != nil {
		return err
	}
	frame, err := compositor.ParseFrame(c.frame)
	if err != nil {
		return err
	}
	sess, err := c.r.newSession()
	if err != nil {
		return err
	}
	if err := loadImage(ctx, sess, &c.img); err != nil {
		return err
	}
	sess.SetSettings(compositor.Settings{Filter: filter, Frame: frame})
	for _, spec := range c.captions {
		if _, err := addCaption(sess, spec); err != nil {
			return err
		}
	}

	if c.output == "" && !c.save && !c.share {
		c.save = true
	}
	if c.output != "" {
		if err := writeOutput(sess, c.output, c.r.stdout); err != nil {
			return err
		}
	}
	if c.save {
		loc, err := sess.Save(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.r.stderr, "saved %s\n", loc.Path)
	}
	if c.share {
		loc, shared, err := sess.Share(ctx)
		if err != nil {
			return err
		}
		if shared {
			fmt.Fprintf(c.r.stderr, "shared %s\n", loc.Name())
		} else {
			fmt.Fprintln(c.r.stderr, "share cancelled")
		}
	}
	return nil
}

// loadImage applies the image named by f. A cancelled pick is reported as an
// error since there is nothing to work on.
func loadImage(ctx context.Context, sess *session.Session, f *imageFlags) error {
	ref, src, err := f.resolve()
	if err != nil {
		return err
	}
	switch {
	case ref != "":
		_, err = sess.LoadRef(ctx, ref)
		return err
	case src != nil:
		loaded, err := sess.Load(ctx, src)
		if err != nil {
			return err
		}
		if !loaded {
			return imagesource.ErrCancelled
		}
		return nil
	}
	return errNoImageFlag
}

func writeOutput(sess *session.Session, path string, stdout io.Writer) error {
	data, err := sess.Export()
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
