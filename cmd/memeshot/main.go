package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/memeshot/internal/compositor"
	"github.com/example/memeshot/internal/config"
	"github.com/example/memeshot/internal/notify"
	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/session"
	"github.com/example/memeshot/internal/share"
	"github.com/example/memeshot/internal/storage"
	"github.com/example/memeshot/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs       *flag.FlagSet
	program  string
	notifier *notify.Notifier
	config   *config.Config
	stdout   io.Writer
	stderr   io.Writer
	stdin    io.Reader

	saveAlerts    bool
	shareAlerts   bool
	failureAlerts bool
	themeName     string
	fontPath      string

	activeTheme *theme.Theme
	fonts       *compositor.Fonts
	journal     *storage.Journal
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
		cfg.ApplyEnv()
	}
	return newRootWith(cfg, os.Stdin, os.Stdout, os.Stderr)
}

func newRootWith(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) *root {
	r := &root{
		fs:       flag.NewFlagSet("memeshot", flag.ContinueOnError),
		program:  "memeshot",
		notifier: notify.New(notify.LoadPreferences()),
		config:   cfg,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}
	r.fs.SetOutput(stderr)
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after saving a meme")
	r.fs.BoolVar(&r.shareAlerts, "notify-share", cfg.Notify.Share, "show a desktop notification after sharing a meme")
	r.fs.BoolVar(&r.failureAlerts, "notify-failure", cfg.Notify.Failure, "show a desktop notification when something goes wrong")
	// Precedence: CLI > Env > Config > Default
	r.fs.StringVar(&r.themeName, "theme", "", "colour theme (default, noir or a configured theme)")
	r.fs.StringVar(&r.fontPath, "font", "", "TrueType font used for captions")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return &UsageError{of: r}
		}
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	r.notifier.Enable(notify.EventSave, r.saveAlerts)
	r.notifier.Enable(notify.EventShare, r.shareAlerts)
	r.notifier.Enable(notify.EventFailure, r.failureAlerts)
	if err := r.loadLook(); err != nil {
		return err
	}
	defer r.close()

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "render":
		cmd, err = parseRenderCmd(subArgs, r)
	case "edit":
		cmd, err = parseEditCmd(subArgs, r)
	case "interactive":
		cmd, err = parseInteractiveCmd(subArgs, r)
	case "serve":
		cmd, err = parseServeCmd(subArgs, r)
	case "history":
		cmd, err = parseHistoryCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

// loadLook resolves the theme and caption font.
func (r *root) loadLook() error {
	if r.themeName != "" {
		r.config.Theme = r.themeName
	}
	t, err := r.config.ResolveTheme(theme.NewLoader())
	if err != nil {
		fmt.Fprintf(r.stderr, "warning: failed to load theme '%s': %v. using default.\n", r.config.Theme, err)
		t = theme.Default()
	}
	r.activeTheme = t

	fontPath := r.fontPath
	if fontPath == "" {
		fontPath = r.config.Font
	}
	if fontPath == "" {
		r.fonts = compositor.DefaultFonts()
		return nil
	}
	f, err := compositor.LoadFonts(fontPath)
	if err != nil {
		return err
	}
	r.fonts = f
	return nil
}

func (r *root) close() {
	if r.journal == nil {
		return
	}
	if err := r.journal.Close(); err != nil {
		fmt.Fprintf(r.stderr, "closing journal: %v\n", err)
	}
	r.journal = nil
}

// openJournal opens the export journal once. Failures are reported and
// leave the journal off.
func (r *root) openJournal() *storage.Journal {
	if r.journal != nil {
		return r.journal
	}
	path := r.config.Journal
	if path == "" {
		p, err := storage.DefaultJournalPath()
		if err != nil {
			fmt.Fprintf(r.stderr, "warning: journal disabled: %v\n", err)
			return nil
		}
		path = p
	}
	j, err := storage.OpenJournal(path)
	if err != nil {
		fmt.Fprintf(r.stderr, "warning: journal disabled: %v\n", err)
		return nil
	}
	r.journal = j
	return j
}

func (r *root) writer() (storage.Writer, error) {
	dir, err := storage.DefaultDir(r.config.SaveDir, r.config.CacheDir)
	if err != nil {
		return nil, err
	}
	return storage.Journaled{Writer: dir, Journal: r.openJournal()}, nil
}

// sharer returns the clipboard plus Telegram when it is configured.
func (r *root) sharer() (share.Target, error) {
	targets := share.Multi{share.Clipboard{}}
	if r.config.Telegram.Enabled() {
		tg, err := share.NewTelegram(r.config.Telegram.Token, r.config.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		targets = append(targets, tg)
	}
	return targets, nil
}

// sessionFactory resolves the shared storage, share targets and caption
// settings once and returns a builder for sessions that use them. Each
// session gets its own compositor and font cache so sessions may render
// concurrently.
func (r *root) sessionFactory(extra ...session.Option) (func() *session.Session, error) {
	storeOpts, err := r.config.StoreOptions()
	if err != nil {
		return nil, err
	}
	w, err := r.writer()
	if err != nil {
		return nil, err
	}
	sh, err := r.sharer()
	if err != nil {
		return nil, err
	}
	return func() *session.Session {
		opts := []session.Option{
			session.WithCompositor(compositor.New(
				compositor.WithTheme(r.activeTheme),
				compositor.WithFonts(r.fonts.Clone()),
			)),
			session.WithStore(overlay.NewStore(storeOpts...)),
			session.WithWriter(w),
			session.WithSharer(sh),
			session.WithNotifier(r.notifier),
		}
		return session.New(append(opts, extra...)...)
	}, nil
}

// newSession builds a single configured session.
func (r *root) newSession(extra ...session.Option) (*session.Session, error) {
	build, err := r.sessionFactory(extra...)
	if err != nil {
		return nil, err
	}
	return build(), nil
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func joinProgram(parent, name string) string {
	return strings.TrimSpace(strings.Join([]string{parent, name}, " "))
}
