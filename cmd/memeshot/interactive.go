package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/example/memeshot/internal/compositor"
	"github.com/example/memeshot/internal/imagesource"
	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/session"
	"github.com/example/memeshot/internal/theme"
)

const interactiveHelp = `commands:
  open <file>                 load an image file
  pick <portal|clipboard|screen>
  add [x,y,color,size,text]   add a caption
  text <id> <text>            replace caption text
  color <id> <color>          set caption colour
  size <id> <n>               set font size
  move <id> <x> <y>           place caption
  nudge <id> <x|y> <+|-> [n]  move caption by pixels
  select <id> | deselect
  delete <id>
  checkpoint | undo
  filter <name|next>          none, grayscale, sepia, brightness
  frame <name|next>           none, square, circle
  list
  save | share | export <file|->
  exit
`

// commandList collects repeatable -e flags.
type commandList []string

func (c *commandList) String() string { return strings.Join(*c, "; ") }

func (c *commandList) Set(v string) error {
	*c = append(*c, v)
	return nil
}

type interactiveCmd struct {
	*subcommand
	img   imageFlags
	execs commandList
	sess  *session.Session
	ctx   context.Context
}

func parseInteractiveCmd(args []string, r *root) (*interactiveCmd, error) {
	c := &interactiveCmd{subcommand: newSubcommand(r, "interactive"), ctx: context.Background()}
	c.img.register(c.fs)
	c.fs.Var(&c.execs, "e", "execute a command and exit (may be specified multiple times)")
	if err := c.parse(c, args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *interactiveCmd) Run() error {
	sess, err := c.r.newSession()
	if err != nil {
		return err
	}
	c.sess = sess
	if err := loadImage(c.ctx, sess, &c.img); err != nil && !errors.Is(err, errNoImageFlag) {
		return err
	}

	if len(c.execs) > 0 {
		for _, line := range c.execs {
			done, err := c.executeLine(line)
			if err != nil {
				return err
			}
			if done {
				break
			}
		}
		return nil
	}

	fmt.Fprintln(c.r.stdout, "Enter commands (type 'help' for a list, 'exit' to quit)")
	scanner := bufio.NewScanner(c.r.stdin)
	for {
		fmt.Fprint(c.r.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		done, err := c.executeLine(scanner.Text())
		if err != nil {
			fmt.Fprintln(c.r.stderr, err)
		}
		if done {
			break
		}
	}
	return scanner.Err()
}

// executeLine runs one command. done reports that the session should end.
func (c *interactiveCmd) executeLine(line string) (done bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false, nil
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)
	out := c.r.stdout

	switch strings.ToLower(name) {
	case "exit", "quit":
		return true, nil
	case "help":
		fmt.Fprint(out, interactiveHelp)
	case "open":
		if rest == "" {
			return false, fmt.Errorf("usage: open <file>")
		}
		if _, err := c.sess.LoadRef(c.ctx, imagesource.FileRef(rest)); err != nil {
			return false, err
		}
		c.printSize()
	case "pick":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: pick <portal|clipboard|screen>")
		}
		src, err := imagesource.ByName(args[0])
		if err != nil {
			return false, err
		}
		loaded, err := c.sess.Load(c.ctx, src)
		if err != nil {
			return false, err
		}
		if !loaded {
			fmt.Fprintln(out, "cancelled")
			return false, nil
		}
		c.printSize()
	case "add":
		if c.sess.Image() == nil {
			return false, session.ErrNoImage
		}
		var a overlay.Annotation
		if rest == "" {
			a = c.sess.Add()
		} else if a, err = addCaption(c.sess, rest); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "added #%d\n", a.ID)
	case "text":
		id, err := c.annotation(args)
		if err != nil {
			return false, err
		}
		_, text, _ := strings.Cut(rest, " ")
		text = strings.TrimSpace(text)
		return false, c.edit(id, overlay.Patch{Text: &text})
	case "color", "colour":
		id, err := c.annotation(args)
		if err != nil {
			return false, err
		}
		if len(args) != 2 {
			return false, fmt.Errorf("usage: color <id> <color>")
		}
		col, err := theme.ParseColor(args[1])
		if err != nil {
			return false, err
		}
		return false, c.edit(id, overlay.Patch{Color: &col})
	case "size":
		id, err := c.annotation(args)
		if err != nil {
			return false, err
		}
		if len(args) != 2 {
			return false, fmt.Errorf("usage: size <id> <n>")
		}
		size, ok := c.sess.SizeRange().ParseSize(args[1])
		if !ok {
			return false, fmt.Errorf("size %q: not a number", args[1])
		}
		return false, c.edit(id, overlay.Patch{FontSize: &size})
	case "move":
		id, err := c.annotation(args)
		if err != nil {
			return false, err
		}
		if len(args) != 3 {
			return false, fmt.Errorf("usage: move <id> <x> <y>")
		}
		p := image.Pt(overlay.ParseCoordinate(args[1]), overlay.ParseCoordinate(args[2]))
		return false, c.edit(id, overlay.Patch{Position: &p})
	case "nudge":
		return false, c.nudge(args)
	case "select":
		id, err := c.annotation(args)
		if err != nil {
			return false, err
		}
		c.sess.Select(id)
	case "deselect":
		c.sess.ClearSelection()
	case "delete":
		id, err := c.annotation(args)
		if err != nil {
			return false, err
		}
		c.sess.Delete(id)
	case "checkpoint":
		c.sess.Checkpoint()
	case "undo":
		if !c.sess.Undo() {
			return false, fmt.Errorf("nothing to undo")
		}
	case "filter":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: filter <name|next>")
		}
		f := c.sess.Settings().Filter.Next()
		if args[0] != "next" {
			if f, err = compositor.ParseFilter(args[0]); err != nil {
				return false, err
			}
		}
		c.sess.SetFilter(f)
		fmt.Fprintf(out, "filter: %s\n", f)
	case "frame":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: frame <name|next>")
		}
		f := c.sess.Settings().Frame.Next()
		if args[0] != "next" {
			if f, err = compositor.ParseFrame(args[0]); err != nil {
				return false, err
			}
		}
		c.sess.SetFrame(f)
		fmt.Fprintf(out, "frame: %s\n", f)
	case "list":
		c.list()
	case "save":
		loc, err := c.sess.Save(c.ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "saved %s\n", loc.Path)
	case "share":
		loc, shared, err := c.sess.Share(c.ctx)
		if err != nil {
			return false, err
		}
		if !shared {
			fmt.Fprintln(out, "share cancelled")
			return false, nil
		}
		fmt.Fprintf(out, "shared %s\n", loc.Name())
	case "export":
		if rest == "" {
			return false, fmt.Errorf("usage: export <file|->")
		}
		if err := writeOutput(c.sess, rest, out); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	return false, nil
}

func (c *interactiveCmd) printSize() {
	size := c.sess.Size()
	fmt.Fprintf(c.r.stdout, "loaded %s (%dx%d)\n", c.sess.Ref(), size.X, size.Y)
}

// annotation resolves the caption id in args[0].
func (c *interactiveCmd) annotation(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing caption id")
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("caption id %q: %w", args[0], err)
	}
	if _, ok := c.sess.Annotation(id); !ok {
		return 0, fmt.Errorf("no caption #%d", id)
	}
	return id, nil
}

// edit applies p as a single undo step.
func (c *interactiveCmd) edit(id int64, p overlay.Patch) error {
	c.sess.Checkpoint()
	if !c.sess.Update(id, p) {
		return fmt.Errorf("no caption #%d", id)
	}
	return nil
}

func (c *interactiveCmd) nudge(args []string) error {
	id, err := c.annotation(args)
	if err != nil {
		return err
	}
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("usage: nudge <id> <x|y> <+|-> [steps]")
	}
	axis, err := overlay.ParseAxis(args[1])
	if err != nil {
		return err
	}
	dir, err := parseDir(args[2])
	if err != nil {
		return err
	}
	steps := 1
	if len(args) == 4 {
		if steps, err = strconv.Atoi(args[3]); err != nil || steps < 1 {
			return fmt.Errorf("nudge steps %q: want a positive integer", args[3])
		}
	}
	if steps > c.sess.MaxNudgeSteps() {
		return fmt.Errorf("nudge steps %d: at most %d", steps, c.sess.MaxNudgeSteps())
	}
	c.sess.Checkpoint()
	_, err = c.sess.NudgeBy(id, axis, dir, steps)
	return err
}

// parseDir accepts "+", "-" or a non-zero integer.
func parseDir(s string) (int, error) {
	switch s {
	case "+":
		return 1, nil
	case "-":
		return -1, nil
	}
	dir, err := strconv.Atoi(s)
	if err != nil || dir == 0 {
		return 0, fmt.Errorf("nudge dir %q: want +, - or a non-zero integer", s)
	}
	return dir, nil
}

func (c *interactiveCmd) list() {
	out := c.r.stdout
	size := c.sess.Size()
	s := c.sess.Settings()
	fmt.Fprintf(out, "%s %dx%d filter=%s frame=%s history=%d\n", c.sess.State(), size.X, size.Y, s.Filter, s.Frame, c.sess.HistoryLen())
	selected, _ := c.sess.Selected()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOS\tSIZE\tCOLOR\tTEXT")
	for _, a := range c.sess.Annotations() {
		mark := ""
		if a.ID == selected {
			mark = "*"
		}
		pos := "-"
		if a.Position != nil {
			pos = fmt.Sprintf("%d,%d", a.Position.X, a.Position.Y)
		}
		fmt.Fprintf(tw, "%s%d\t%s\t%d\t%s\t%q\n", mark, a.ID, pos, a.FontSize, theme.Hex(a.Color), a.Text)
	}
	tw.Flush()
}
