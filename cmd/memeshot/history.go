package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"
)

type historyCmd struct {
	*subcommand
	limit  int
	asJSON bool
}

func parseHistoryCmd(args []string, r *root) (*historyCmd, error) {
	c := &historyCmd{subcommand: newSubcommand(r, "history")}
	c.fs.IntVar(&c.limit, "limit", 20, "number of exports to show")
	c.fs.BoolVar(&c.asJSON, "json", false, "print entries as JSON")
	if err := c.parse(c, args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *historyCmd) Run() error {
	j := c.r.openJournal()
	if j == nil {
		return fmt.Errorf("export journal unavailable")
	}
	entries, err := j.Recent(context.Background(), c.limit)
	if err != nil {
		return err
	}
	if c.asJSON {
		enc := json.NewEncoder(c.r.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	tw := tabwriter.NewWriter(c.r.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tAREA\tBYTES\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Created.Format(time.DateTime), e.Area, e.Bytes, e.Path)
	}
	return tw.Flush()
}
