// Command ttldict inspects and edits expiring key-value database files.
// Every invocation runs as a single transaction: either the whole command
// takes effect or none of it does.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/ttldict/core/dict"
	"github.com/FocuswithJustin/ttldict/core/sqlite"
	"github.com/FocuswithJustin/ttldict/internal/logging"
)

const version = "1.0.0"

// CLI defines the command-line interface for ttldict.
var CLI struct {
	// Global flags
	DB        string        `name:"db" short:"d" help:"Path to the database file" type:"path"`
	Table     string        `name:"table" short:"t" default:"ttldict" help:"Table backing the mapping"`
	Lifespan  time.Duration `name:"lifespan" default:"168h" help:"Lifespan applied to written entries"`
	ReadOnly  bool          `name:"read-only" help:"Open the database file read-only"`
	LogLevel  string        `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log verbosity"`
	LogFormat string        `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`

	Get         GetCmd         `cmd:"" help:"Print the value stored under a key"`
	Set         SetCmd         `cmd:"" help:"Store a value under a key"`
	Del         DelCmd         `cmd:"" help:"Remove a key"`
	Has         HasCmd         `cmd:"" help:"Exit 0 if the key exists, 1 otherwise"`
	Len         LenCmd         `cmd:"" help:"Print the number of entries"`
	Keys        KeysCmd        `cmd:"" help:"List keys"`
	Items       ItemsCmd       `cmd:"" help:"List key-value pairs"`
	Clear       ClearCmd       `cmd:"" help:"Remove all entries"`
	Postpone    PostponeCmd    `cmd:"" help:"Push one entry's expiry out by the lifespan"`
	PostponeAll PostponeAllCmd `cmd:"" help:"Push every entry's expiry out by the lifespan"`
	Info        InfoCmd        `cmd:"" help:"Print driver and database file details"`
	Version     VersionCmd     `cmd:"" help:"Print version information"`
}

func openManager() (*dict.Manager, error) {
	if CLI.DB == "" {
		return nil, fmt.Errorf("missing --db flag")
	}
	opts := []dict.Option{
		dict.WithTable(CLI.Table),
		dict.WithLifespan(CLI.Lifespan),
		dict.WithLogger(logging.GetLogger()),
	}
	if CLI.ReadOnly {
		opts = append(opts, dict.WithReadOnly())
	}
	return dict.NewManager(CLI.DB, opts...)
}

func update(fn func(ctx context.Context, c *dict.Conn) error) error {
	m, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()
	ctx := context.Background()
	return m.Update(ctx, func(c *dict.Conn) error { return fn(ctx, c) })
}

func view(fn func(ctx context.Context, c *dict.Conn) error) error {
	m, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()
	ctx := context.Background()
	return m.View(ctx, func(c *dict.Conn) error { return fn(ctx, c) })
}

// printValue writes a stored value to stdout as JSON.
func printValue(v any) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(v)
}

// parseValue interprets the command-line value: valid JSON is stored as the
// decoded value, anything else as a plain string. Quote the argument to force
// a string that happens to look like JSON.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// GetCmd prints the value stored under a key.
type GetCmd struct {
	Key string `arg:"" help:"Key to look up"`
}

func (g *GetCmd) Run() error {
	return view(func(ctx context.Context, c *dict.Conn) error {
		v, err := c.Get(ctx, g.Key)
		if err != nil {
			return err
		}
		return printValue(v)
	})
}

// SetCmd stores a value under a key.
type SetCmd struct {
	Key   string `arg:"" help:"Key to store under"`
	Value string `arg:"" help:"Value; parsed as JSON when possible, stored as a string otherwise"`
}

func (s *SetCmd) Run() error {
	return update(func(ctx context.Context, c *dict.Conn) error {
		return c.Set(ctx, s.Key, parseValue(s.Value))
	})
}

// DelCmd removes a key.
type DelCmd struct {
	Key string `arg:"" help:"Key to remove"`
}

func (d *DelCmd) Run() error {
	return update(func(ctx context.Context, c *dict.Conn) error {
		return c.Delete(ctx, d.Key)
	})
}

// HasCmd reports key presence through the exit status.
type HasCmd struct {
	Key string `arg:"" help:"Key to test"`
}

func (h *HasCmd) Run() error {
	var found bool
	err := view(func(ctx context.Context, c *dict.Conn) error {
		var err error
		found, err = c.Contains(ctx, h.Key)
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		os.Exit(1)
	}
	return nil
}

// LenCmd prints the number of entries.
type LenCmd struct{}

func (l *LenCmd) Run() error {
	return view(func(ctx context.Context, c *dict.Conn) error {
		n, err := c.Len(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	})
}

// KeysCmd lists keys, one per line.
type KeysCmd struct {
	Order   dict.Order `name:"order" default:"id" enum:"id,key,expire" help:"Sort column"`
	Reverse bool       `name:"reverse" short:"r" help:"Sort descending"`
}

func (k *KeysCmd) Run() error {
	dir := dict.Asc
	if k.Reverse {
		dir = dict.Desc
	}
	return view(func(ctx context.Context, c *dict.Conn) error {
		cur, err := c.Keys(ctx, k.Order, dir)
		if err != nil {
			return err
		}
		defer cur.Close()
		for cur.Next() {
			fmt.Println(cur.Key())
		}
		return cur.Err()
	})
}

// ItemsCmd lists key-value pairs as tab-separated key and JSON value.
type ItemsCmd struct {
	Order   dict.Order `name:"order" default:"id" enum:"id,key,expire" help:"Sort column"`
	Reverse bool       `name:"reverse" short:"r" help:"Sort descending"`
}

func (i *ItemsCmd) Run() error {
	dir := dict.Asc
	if i.Reverse {
		dir = dict.Desc
	}
	return view(func(ctx context.Context, c *dict.Conn) error {
		cur, err := c.Items(ctx, i.Order, dir)
		if err != nil {
			return err
		}
		defer cur.Close()
		for cur.Next() {
			data, err := json.Marshal(cur.Value())
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", cur.Key(), data)
		}
		return cur.Err()
	})
}

// ClearCmd removes all entries.
type ClearCmd struct{}

func (c *ClearCmd) Run() error {
	return update(func(ctx context.Context, conn *dict.Conn) error {
		return conn.Clear(ctx)
	})
}

// PostponeCmd pushes one entry's expiry out by the lifespan.
type PostponeCmd struct {
	Key string `arg:"" help:"Key to postpone"`
}

func (p *PostponeCmd) Run() error {
	return update(func(ctx context.Context, c *dict.Conn) error {
		return c.Postpone(ctx, p.Key)
	})
}

// PostponeAllCmd pushes every entry's expiry out by the lifespan.
type PostponeAllCmd struct{}

func (p *PostponeAllCmd) Run() error {
	return update(func(ctx context.Context, c *dict.Conn) error {
		return c.PostponeAll(ctx)
	})
}

// InfoCmd prints driver and database file details.
type InfoCmd struct{}

func (i *InfoCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Printf("driver:         %s (%s)\n", info.DriverName, info.DriverType)
	return view(func(ctx context.Context, c *dict.Conn) error {
		stats, err := c.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("application id: %d\n", stats.ApplicationID)
		fmt.Printf("schema version: %d\n", stats.SchemaVersion)
		fmt.Printf("table:          %s\n", CLI.Table)
		fmt.Printf("entries:        %d\n", stats.Entries)
		return nil
	})
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("ttldict version %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("ttldict"),
		kong.Description("Expiring key-value store backed by a SQLite file"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level, err := logging.ParseLevel(CLI.LogLevel)
	ctx.FatalIfErrorf(err)
	format, err := logging.ParseFormat(CLI.LogFormat)
	ctx.FatalIfErrorf(err)
	logging.InitLogger(level, format)

	err = ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
