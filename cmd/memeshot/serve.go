package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/memeshot/internal/imagesource"
	"github.com/example/memeshot/internal/server"
	"github.com/example/memeshot/internal/session"
)

// listen serves srv until ctx ends. Tests replace it.
var listen = func(ctx context.Context, srv *server.Server, addr string) error {
	return srv.ListenAndServe(ctx, addr)
}

type serveCmd struct {
	*subcommand
	addr      string
	maxBytes  int64
	maxPixels int64
}

func parseServeCmd(args []string, r *root) (*serveCmd, error) {
	c := &serveCmd{subcommand: newSubcommand(r, "serve")}
	c.fs.StringVar(&c.addr, "listen", r.config.Listen, "address to listen on")
	c.fs.Int64Var(&c.maxBytes, "max-image-bytes", server.DefaultMaxImageBytes, "largest accepted image upload")
	c.fs.Int64Var(&c.maxPixels, "max-image-pixels", imagesource.DefaultMaxPixels, "largest accepted decoded image in pixels")
	if err := c.parse(c, args); err != nil {
		return nil, err
	}
	if c.fs.NArg() > 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *serveCmd) Run() error {
	build, err := c.r.sessionFactory()
	if err != nil {
		return err
	}
	factory := func() (*session.Session, error) { return build(), nil }
	srv := server.New(factory, server.WithMaxImageBytes(c.maxBytes), server.WithMaxImagePixels(c.maxPixels))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(c.r.stderr, "serving on http://%s\n", c.addr)
	return listen(ctx, srv, c.addr)
}
