// Package config loads the machine parameters of the cost model.
//
// Parameters come from a configuration file, by default a properties file of
// the form
//
//	r = 1
//	t = 2
//	l = 1
//	m = 16
//	a = 2
//	f = 4
//
// YAML, TOML and JSON files are read by extension. Environment variables
// (SELOPT_R, SELOPT_T, ...) override the file, and command-line flags
// registered with RegisterFlags override both.
package config

import (
	"math"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yashagw/selopt/internal/cost"
	"github.com/yashagw/selopt/internal/optimizer"
)

// EnvPrefix prefixes the environment variables that override the file.
const EnvPrefix = "SELOPT"

// MaxPredicatesKey is the optional key capping the predicates per query.
const MaxPredicatesKey = "max_predicates"

// ErrInvalidConfiguration is returned when a parameter is missing, not a
// number, or negative.
var ErrInvalidConfiguration = errors.New("invalid configuration")

type param struct {
	key   string
	usage string
	set   func(*cost.Params, float64)
}

var params = []param{
	{"r", "cost of evaluating one predicate", func(p *cost.Params, v float64) { p.R = v }},
	{"t", "cost of an if test", func(p *cost.Params, v float64) { p.T = v }},
	{"l", "cost of a logical-and step", func(p *cost.Params, v float64) { p.L = v }},
	{"m", "branch misprediction penalty", func(p *cost.Params, v float64) { p.M = v }},
	{"a", "cost of writing an answer", func(p *cost.Params, v float64) { p.A = v }},
	{"f", "cost of fetching a column value", func(p *cost.Params, v float64) { p.F = v }},
}

// Config holds the loaded machine parameters.
type Config struct {
	Params        cost.Params
	MaxPredicates int
}

// Model returns the cost model for the loaded parameters.
func (c Config) Model() (*cost.Model, error) {
	return cost.NewModel(c.Params)
}

// RegisterFlags adds one flag per machine parameter to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, p := range params {
		fs.Float64(flagName(p.key), 0, "override "+p.usage)
	}
	fs.Int(flagName(MaxPredicatesKey), optimizer.DefaultMaxPredicates, "largest query to optimize")
}

func flagName(key string) string {
	if key == MaxPredicatesKey {
		return "max-predicates"
	}
	return "cost-" + key
}

// Load reads the configuration file at path. flags may be nil; otherwise
// flags added by RegisterFlags that were set on the command line take
// precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault(MaxPredicatesKey, optimizer.DefaultMaxPredicates)

	if flags != nil {
		for _, key := range append(keys(), MaxPredicatesKey) {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, errors.Wrapf(err, "binding flag %s", f.Name)
				}
			}
		}
	}

	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); !slices.Contains(viper.SupportedExts, ext) {
		v.SetConfigType("properties")
	}
	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrapf(err, "reading configuration %s", path)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	for _, p := range params {
		if !v.IsSet(p.key) {
			return Config{}, errors.WithHintf(
				errors.Wrapf(ErrInvalidConfiguration, "missing parameter %q", p.key),
				"Set %s in the configuration file or %s_%s in the environment.",
				p.key, EnvPrefix, strings.ToUpper(p.key),
			)
		}
		val, err := cast.ToFloat64E(strings.TrimSpace(cast.ToString(v.Get(p.key))))
		if err != nil {
			return Config{}, errors.Wrapf(ErrInvalidConfiguration, "parameter %q: %v", p.key, err)
		}
		if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
			return Config{}, errors.Wrapf(ErrInvalidConfiguration, "parameter %q is %v, must be a non-negative number", p.key, val)
		}
		p.set(&cfg.Params, val)
	}

	maxPredicates, err := cast.ToIntE(v.Get(MaxPredicatesKey))
	if err != nil {
		return Config{}, errors.Wrapf(ErrInvalidConfiguration, "%s: %v", MaxPredicatesKey, err)
	}
	if maxPredicates < 1 {
		return Config{}, errors.Wrapf(ErrInvalidConfiguration, "%s is %d, must be at least 1", MaxPredicatesKey, maxPredicates)
	}
	cfg.MaxPredicates = maxPredicates

	if err := cfg.Params.Validate(); err != nil {
		return Config{}, errors.Mark(err, ErrInvalidConfiguration)
	}
	return cfg, nil
}

func keys() []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.key
	}
	return out
}
