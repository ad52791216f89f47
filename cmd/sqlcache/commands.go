package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type cmdStats struct{}

func (cmd *cmdStats) Execute([]string) (err error) {
	var c = openCache()
	defer func() { err = multierr.Append(err, c.Close()) }()

	stats, err := c.Stats()
	if err != nil {
		return err
	}
	samples, err := c.Samples(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("path:     %s\n", c.Path())
	fmt.Printf("size:     %s\n", humanize.IBytes(uint64(stats.FileSize)))
	fmt.Printf("rows:     %s\n", humanize.Comma(stats.Rows))
	fmt.Printf("samples:  %d\n", len(samples))
	return nil
}

type cmdCleanup struct {
	Vacuum bool `long:"vacuum" description:"Vacuum the store after cleanup"`
}

func (cmd *cmdCleanup) Execute([]string) (err error) {
	var c = openCache()
	defer func() { err = multierr.Append(err, c.Close()) }()

	var ctx = context.Background()
	res, err := c.Cleanup(ctx)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"expired": res.Expired,
		"stale":   res.Stale,
	}).Info("cleanup complete")
	fmt.Printf("removed %s expired and %s stale entries\n", humanize.Comma(res.Expired), humanize.Comma(res.Stale))

	if cmd.Vacuum {
		return c.Vacuum(ctx)
	}
	return nil
}

type cmdVacuum struct{}

func (cmd *cmdVacuum) Execute([]string) (err error) {
	var c = openCache()
	defer func() { err = multierr.Append(err, c.Close()) }()

	before, err := c.Stats()
	if err != nil {
		return err
	}
	if err = c.Vacuum(context.Background()); err != nil {
		return err
	}
	after, err := c.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", humanize.IBytes(uint64(before.FileSize)), humanize.IBytes(uint64(after.FileSize)))
	return nil
}

type cmdGet struct {
	Args struct {
		Group string `positional-arg-name:"group" required:"yes"`
		Key   string `positional-arg-name:"key" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *cmdGet) Execute([]string) (err error) {
	var c = openCache()
	defer func() { err = multierr.Append(err, c.Close()) }()

	v, ok := c.Get(cmd.Args.Group, cmd.Args.Key)
	if !ok {
		return errors.Errorf("%s/%s not found", cmd.Args.Group, cmd.Args.Key)
	}
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if ttl, ok := c.TTL(cmd.Args.Group, cmd.Args.Key); ok && ttl >= 0 {
		fmt.Fprintf(os.Stderr, "expires %s\n", humanize.Time(time.Now().Add(ttl)))
	}
	return nil
}

type cmdFlushGroup struct {
	Args struct {
		Group string `positional-arg-name:"group" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *cmdFlushGroup) Execute([]string) (err error) {
	var c = openCache()
	defer func() { err = multierr.Append(err, c.Close()) }()
	return c.FlushGroup(cmd.Args.Group)
}

type cmdSamples struct {
	JSON bool `long:"json" description:"Write samples as JSON lines"`
}

func (cmd *cmdSamples) Execute([]string) (err error) {
	var c = openCache()
	defer func() { err = multierr.Append(err, c.Close()) }()

	samples, err := c.Samples(context.Background())
	if err != nil {
		return err
	}
	if cmd.JSON {
		var enc = jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
		for _, s := range samples {
			if err := enc.Encode(s); err != nil {
				return err
			}
		}
		return nil
	}

	var w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tHITS\tMISSES\tSTORE HITS\tNEGATIVE\tPUTS\tDELETES\tFLUSH")
	for _, s := range samples {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			humanize.Time(time.Unix(s.Bucket, 0)),
			s.TierHits, s.TierMisses, s.StoreHits, s.NegativeHits,
			s.Puts, s.Deletes, time.Duration(s.FlushNS))
	}
	return w.Flush()
}
