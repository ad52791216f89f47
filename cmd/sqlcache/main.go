// Command sqlcache inspects and maintains a cache store file.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bretuobay/sqlcache"
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

const iniFilename = "sqlcache.ini"

type cacheConfig struct {
	Dir         string        `long:"dir" env:"DIR" default:"." description:"Directory holding the cache file"`
	File        string        `long:"file" env:"FILE" default:"object-cache.db" description:"Cache file name within --dir"`
	BusyTimeout time.Duration `long:"busy-timeout" env:"BUSY_TIMEOUT" default:"5s" description:"How long to wait on a file lock held by another process"`
	Retention   time.Duration `long:"retention" env:"RETENTION" default:"24h" description:"Age after which entries without a TTL are cleaned up"`
	Codec       string        `long:"codec" env:"CODEC" default:"cbor" choice:"cbor" choice:"json" choice:"cbor+snappy" choice:"json+snappy" description:"Value encoding used by the cache writers"`
}

// Config is the top-level configuration shared by every sub-command.
var Config = new(struct {
	Cache cacheConfig `group:"Cache" namespace:"cache" env-namespace:"SQLCACHE"`
	Log   LogConfig   `group:"Logging" namespace:"log" env-namespace:"LOG"`
})

func main() {
	var parser = flags.NewParser(Config, flags.Default)
	parser.LongDescription = `sqlcache inspects and maintains the SQLite file behind a sqlcache object cache.

Optionally configure sqlcache with a '` + iniFilename + `' file in the current working directory,
or with '~/.config/sqlcache/` + iniFilename + `'. Use the 'print-config' sub-command to inspect
the tool's current configuration.
`
	mustAddCmd(parser, "stats", "Print store size and row counts", "", &cmdStats{})
	mustAddCmd(parser, "cleanup", "Remove expired and stale entries", `
Cleanup runs both passes of the cache cleanup policy in one transaction: entries
whose TTL has elapsed, and entries written without a TTL longer than --cache.retention ago.
`, &cmdCleanup{})
	mustAddCmd(parser, "vacuum", "Rebuild the store file and truncate its write-ahead log", "", &cmdVacuum{})
	mustAddCmd(parser, "get", "Print the value stored under a group and key", "", &cmdGet{})
	mustAddCmd(parser, "flush-group", "Delete every entry of a group", "", &cmdFlushGroup{})
	mustAddCmd(parser, "samples", "Print persisted session samples", "", &cmdSamples{})
	mustAddCmd(parser, "print-config", "Print combined configuration and exit", `
print-config parses the combined configuration from `+iniFilename+`, flags,
and environment variables, and then writes the configuration to stdout in INI format.
`, &printConfig{parser})

	mustParseConfig(parser, iniFilename)
}

func mustAddCmd(parser *flags.Parser, name, short, long string, cfg interface{}) {
	_, err := parser.AddCommand(name, short, long, cfg)
	Must(err, "failed to add command", "name", name)
}

// mustParseConfig applies the first INI file found, then the command line.
func mustParseConfig(parser *flags.Parser, configName string) {
	var origOptions = parser.Options
	parser.Options |= flags.IgnoreUnknown

	var iniParser = flags.NewIniParser(parser)
	for _, prefix := range []string{".", filepath.Join(os.Getenv("HOME"), ".config", "sqlcache")} {
		if err := iniParser.ParseFile(filepath.Join(prefix, configName)); err == nil {
			break
		} else if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	parser.Options = origOptions

	if _, err := parser.Parse(); err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// openCache starts a session with maintenance disabled, so that inspecting
// a store never modifies it as a side effect.
func openCache() *sqlcache.Cache {
	InitLog(Config.Log)

	var opts = sqlcache.DefaultOptions(Config.Cache.Dir)
	opts.File = Config.Cache.File
	opts.BusyTimeout = Config.Cache.BusyTimeout
	opts.Retention = Config.Cache.Retention
	opts.Codec = Config.Cache.Codec
	opts.Maintenance = sqlcache.MaintenancePolicy{CleanupOneIn: -1, VacuumOneIn: -1}

	c, err := sqlcache.Open(opts)
	Must(err, "failed to open cache", "dir", opts.Dir, "file", opts.File)
	log.WithField("path", c.Path()).Debug("opened cache")
	return c
}

type printConfig struct {
	*flags.Parser `no-flag:"t"`
}

func (p printConfig) Execute([]string) error {
	var ini = flags.NewIniParser(p.Parser)
	ini.Write(os.Stdout, flags.IniIncludeComments|flags.IniCommentDefaults|flags.IniIncludeDefaults)
	return nil
}
