// Package config turns flags, environment, config files and YAML batch files
// into intersection requests.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"mapsect/internal/crs"
	"mapsect/internal/envelope"
	"mapsect/internal/intersect"
)

// EnvPrefix is prepended to every environment variable, so source.crs is
// read from MAPSECT_SOURCE_CRS.
const EnvPrefix = "MAPSECT"

// Side is one envelope of a request. Bounds is minx,miny,maxx,maxy, either
// as a comma separated string or a list of four numbers.
type Side struct {
	CRS    string `mapstructure:"crs" yaml:"crs"`
	Bounds any    `mapstructure:"bounds" yaml:"bounds"`
}

// Request describes one intersection. Zero valued tuning fields fall back
// to values derived from Effort.
type Request struct {
	Name      string  `mapstructure:"name" yaml:"name"`
	Source    Side    `mapstructure:"source" yaml:"source"`
	Target    Side    `mapstructure:"target" yaml:"target"`
	Effort    int     `mapstructure:"effort" yaml:"effort"`
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
	HDiv      int     `mapstructure:"hdiv" yaml:"hdiv"`
	VDiv      int     `mapstructure:"vdiv" yaml:"vdiv"`
	Grid      bool    `mapstructure:"grid" yaml:"grid"`
}

// Batch is the layout of a batch file.
type Batch struct {
	Requests []Request `yaml:"requests"`
}

// RegisterFlags adds the request flags to fs.
func RegisterFlags(fs *flag.FlagSet) {
	fs.String("config", "", "Config file (yaml, json or toml). Flags and environment override it.")
	fs.String("source-crs", "", "Source CRS, e.g. latlon, eqc:lon0=180, stere:north,lon0=-105 or a +proj string.")
	fs.String("source-bounds", "", "Source envelope as minx,miny,maxx,maxy.")
	fs.String("target-crs", "", "Target CRS.")
	fs.String("target-bounds", "", "Target envelope as minx,miny,maxx,maxy.")
	fs.Int("effort", intersect.DefaultEffort, "Number of source samples the tracer may use.")
	fs.Float64("threshold", 0, "Straightness threshold in target units. Derived from effort when 0.")
	fs.Int("hdiv", 0, "Maximum horizontal divisions. Derived from effort when 0.")
	fs.Int("vdiv", 0, "Maximum vertical divisions. Derived from effort when 0.")
	fs.Bool("grid", false, "Skip the border tracer and use the grid intersector.")
	fs.String("format", "wkt", "Output format: wkt or geojson.")
	fs.String("log-level", "info", "Log level: debug, info, warn or error.")
}

// keys maps viper keys to the flags that set them.
var keys = map[string]string{
	"config":        "config",
	"source.crs":    "source-crs",
	"source.bounds": "source-bounds",
	"target.crs":    "target-crs",
	"target.bounds": "target-bounds",
	"effort":        "effort",
	"threshold":     "threshold",
	"hdiv":          "hdiv",
	"vdiv":          "vdiv",
	"grid":          "grid",
	"format":        "format",
	"log-level":     "log-level",
}

// New returns a viper instance reading fs, the environment and, when the
// config flag is set, a config file.
func New(fs *flag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("effort", intersect.DefaultEffort)
	v.SetDefault("format", "wkt")
	v.SetDefault("log-level", "info")
	for key, name := range keys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "binding %s", name)
			}
		}
	}
	if cfg := v.GetString("config"); cfg != "" {
		v.SetConfigFile(cfg)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
	}
	return v, nil
}

// Load reads the request held by v.
func Load(v *viper.Viper) (Request, error) {
	var r Request
	if err := v.Unmarshal(&r); err != nil {
		return Request{}, errors.Wrap(err, "decoding request")
	}
	return r, r.Validate()
}

// LoadBatch reads a YAML batch file.
func LoadBatch(path string) ([]Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if len(b.Requests) == 0 {
		return nil, errors.Errorf("%s: no requests", path)
	}
	for i := range b.Requests {
		if b.Requests[i].Name == "" {
			b.Requests[i].Name = cast.ToString(i + 1)
		}
		if err := b.Requests[i].Validate(); err != nil {
			return nil, errors.Wrapf(err, "request %s", b.Requests[i].Name)
		}
	}
	return b.Requests, nil
}

// ParseRequest reads a single request written as YAML.
func ParseRequest(text string) (Request, error) {
	var r Request
	if err := yaml.Unmarshal([]byte(text), &r); err != nil {
		return Request{}, errors.Wrap(err, "parsing request")
	}
	return r, r.Validate()
}

// Validate checks that both sides parse.
func (r Request) Validate() error {
	_, _, err := r.Envelopes()
	return err
}

// Envelopes resolves the source and target envelopes.
func (r Request) Envelopes() (src, tgt envelope.Envelope, err error) {
	if src, err = r.Source.envelope(); err != nil {
		return src, tgt, errors.Wrap(err, "source")
	}
	if tgt, err = r.Target.envelope(); err != nil {
		return src, tgt, errors.Wrap(err, "target")
	}
	return src, tgt, nil
}

func (s Side) envelope() (envelope.Envelope, error) {
	if s.CRS == "" {
		return envelope.Envelope{}, errors.New("crs is required")
	}
	c, err := crs.Parse(s.CRS)
	if err != nil {
		return envelope.Envelope{}, err
	}
	b, err := ParseBounds(s.Bounds)
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.New(c, b[0], b[1], b[2], b[3]), nil
}

// Options derives intersection options, letting explicit settings override
// the ones computed from effort.
func (r Request) Options(src, tgt envelope.Envelope) intersect.Options {
	effort := r.Effort
	if effort <= 0 {
		effort = intersect.DefaultEffort
	}
	opts := intersect.OptionsFromEffort(src, tgt, effort)
	if r.Threshold > 0 {
		opts.Threshold = r.Threshold
	}
	if r.HDiv > 0 {
		opts.MaxHorDivisions = r.HDiv
	}
	if r.VDiv > 0 {
		opts.MaxVertDivisions = r.VDiv
	}
	opts.ForceGrid = r.Grid
	return opts
}

// ParseBounds accepts "minx,miny,maxx,maxy" or a list of four numbers.
func ParseBounds(v any) ([4]float64, error) {
	var out [4]float64
	var parts []any
	switch t := v.(type) {
	case nil:
		return out, errors.New("bounds are required")
	case []float64:
		for _, f := range t {
			parts = append(parts, f)
		}
	case string:
		for _, f := range strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' }) {
			parts = append(parts, f)
		}
	default:
		var err error
		if parts, err = cast.ToSliceE(v); err != nil {
			return out, errors.Wrap(err, "bounds")
		}
	}
	if len(parts) != 4 {
		return out, errors.Errorf("bounds need 4 numbers, got %d", len(parts))
	}
	for i, p := range parts {
		f, err := cast.ToFloat64E(p)
		if err != nil {
			return out, errors.Wrapf(err, "bounds[%d]", i)
		}
		out[i] = f
	}
	if out[2] < out[0] || out[3] < out[1] {
		return out, errors.Errorf("bounds %v: max below min", out)
	}
	return out, nil
}
