// Package config holds the connection parameters shared by the client and
// server sessions.
//
// A Config starts from Default, is overlaid by a yaml file found through the
// paths package, and finally by the command-line flags the user set.
package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// FileName is the configuration file looked up by the binaries.
const FileName = "voidofdreams.yml"

const (
	DefaultUsername    = "user"
	DefaultAddress     = "127.0.0.1"
	DefaultPort        = 12525
	DefaultBacklog     = 10
	DefaultPollTimeout = 100 * time.Millisecond
)

// Config is the set of connection parameters.
//
// The client uses Username, Address, Port and PollTimeout. The server binds
// the wildcard address on Port and uses the rest.
type Config struct {
	// Username is limited to net.MaxUsernameSize bytes.
	Username string `yaml:"username" validate:"required,max=255"`
	Address  string `yaml:"address" validate:"required"`
	// Port is shared by the stream and the datagram flow. Zero lets a
	// server pick a free one.
	Port        int           `yaml:"port" validate:"gte=0,lte=65535"`
	Backlog     int           `yaml:"backlog" validate:"gte=1"`
	PollTimeout time.Duration `yaml:"poll_timeout" validate:"gt=0"`

	DebugListenAddress string `yaml:"debug_listen_address" validate:"omitempty,hostname_port"`
	StatsDatabase      string `yaml:"stats_database"`
}

func Default() Config {
	return Config{
		Username:    DefaultUsername,
		Address:     DefaultAddress,
		Port:        DefaultPort,
		Backlog:     DefaultBacklog,
		PollTimeout: DefaultPollTimeout,
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// Read overlays the yaml document in r onto c. Unknown keys are an error.
func (c *Config) Read(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading configuration")
	}
	if err := yaml.UnmarshalStrict(b, c); err != nil {
		return errors.Wrap(err, "parsing configuration")
	}
	return nil
}

// Load returns the defaults overlaid by the file at path. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return c, errors.Wrap(err, "opening configuration")
	}
	defer f.Close()
	if err := c.Read(f); err != nil {
		return c, errors.Wrapf(err, "%s", path)
	}
	return c, nil
}

// Overrides are command-line values that replace configured ones when the
// user set them explicitly.
type Overrides struct {
	fs *flag.FlagSet
	c  Config
}

// RegisterFlags defines one flag per field on fs.
func RegisterFlags(fs *flag.FlagSet) *Overrides {
	o := &Overrides{fs: fs, c: Default()}
	fs.StringVar(&o.c.Username, "username", o.c.Username, "Player name announced to the server")
	fs.StringVar(&o.c.Address, "address", o.c.Address, "Server address to connect to")
	fs.IntVar(&o.c.Port, "port", o.c.Port, "Port of both the stream and the datagram flow")
	fs.IntVar(&o.c.Backlog, "backlog", o.c.Backlog, "Listen backlog of the server")
	fs.DurationVar(&o.c.PollTimeout, "poll_timeout", o.c.PollTimeout, "How often session loops check for a stop request")
	fs.StringVar(&o.c.DebugListenAddress, "debug_listen_address", o.c.DebugListenAddress, "Address for the debug HTTP server; empty to disable")
	fs.StringVar(&o.c.StatsDatabase, "stats_database", o.c.StatsDatabase, "Path of the sqlite scoreboard; empty to disable")
	return o
}

// Apply copies every flag set on the command line into c.
func (o *Overrides) Apply(c *Config) {
	o.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "username":
			c.Username = o.c.Username
		case "address":
			c.Address = o.c.Address
		case "port":
			c.Port = o.c.Port
		case "backlog":
			c.Backlog = o.c.Backlog
		case "poll_timeout":
			c.PollTimeout = o.c.PollTimeout
		case "debug_listen_address":
			c.DebugListenAddress = o.c.DebugListenAddress
		case "stats_database":
			c.StatsDatabase = o.c.StatsDatabase
		}
	})
}
