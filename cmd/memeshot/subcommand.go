package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"strings"

	"github.com/example/memeshot/internal/imagesource"
	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/session"
	"github.com/example/memeshot/internal/theme"
)

// subcommand carries the flag set and naming shared by every command.
type subcommand struct {
	r    *root
	fs   *flag.FlagSet
	name string
}

func newSubcommand(r *root, name string) *subcommand {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	return &subcommand{r: r, fs: fs, name: name}
}

func (s *subcommand) Program() string {
	return joinProgram(s.r.program, s.name)
}

func (s *subcommand) FlagSet() *flag.FlagSet {
	return s.fs
}

// parse parses args, turning -h into a UsageError for of.
func (s *subcommand) parse(of HelpData, args []string) error {
	s.fs.Usage = usageFunc(of)
	if err := s.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return &UsageError{of: of}
		}
		return err
	}
	return nil
}

// imageFlags are the -image and -source flags shared by render, edit and
// interactive.
type imageFlags struct {
	file   string
	source string
}

func (f *imageFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.file, "image", "", "image file to caption")
	fs.StringVar(&f.source, "source", "", "image source: portal, clipboard or screen")
}

// resolve returns the requested image, or an empty ref and nil source when none
// was asked for.
func (f *imageFlags) resolve() (imagesource.Ref, imagesource.Source, error) {
	switch {
	case f.file != "" && f.source != "":
		return "", nil, fmt.Errorf("use either -image or -source, not both")
	case f.file != "":
		return imagesource.FileRef(f.file), nil, nil
	case f.source != "":
		src, err := imagesource.ByName(f.source)
		return "", src, err
	}
	return "", nil, nil
}

// captionList collects repeatable -caption flags.
type captionList []string

func (c *captionList) String() string { return strings.Join(*c, "; ") }

func (c *captionList) Set(v string) error {
	*c = append(*c, v)
	return nil
}

// parseCaption reads "x,y,color,size,text". Empty fields keep the store
// defaults and empty x and y centre the caption. Coordinates follow the
// form field rules. The text may contain commas.
func parseCaption(spec string, sizes overlay.SizeRange) (overlay.Patch, error) {
	parts := strings.SplitN(spec, ",", 5)
	if len(parts) != 5 {
		return overlay.Patch{}, fmt.Errorf("caption %q: want x,y,color,size,text", spec)
	}
	var p overlay.Patch
	xs, ys := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if xs != "" || ys != "" {
		p.Position = &image.Point{X: overlay.ParseCoordinate(xs), Y: overlay.ParseCoordinate(ys)}
	}
	if cs := strings.TrimSpace(parts[2]); cs != "" {
		c, err := theme.ParseColor(cs)
		if err != nil {
			return overlay.Patch{}, fmt.Errorf("caption color: %w", err)
		}
		p.Color = &c
	}
	if ss := strings.TrimSpace(parts[3]); ss != "" {
		size, ok := sizes.ParseSize(ss)
		if !ok {
			return overlay.Patch{}, fmt.Errorf("caption size %q: not a number", ss)
		}
		p.FontSize = &size
	}
	text := parts[4]
	p.Text = &text
	return p, nil
}

// addCaption adds a caption built from spec to sess.
func addCaption(sess *session.Session, spec string) (overlay.Annotation, error) {
	p, err := parseCaption(spec, sess.SizeRange())
	if err != nil {
		return overlay.Annotation{}, err
	}
	if sess.Image() == nil {
		return overlay.Annotation{}, session.ErrNoImage
	}
	a := sess.Add()
	sess.Update(a.ID, p)
	a, _ = sess.Annotation(a.ID)
	return a, nil
}
