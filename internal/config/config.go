/*
 * config.go, part of uppout.
 *
 * Copyright 2026 The uppout Authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package config holds the YAML configuration of the uppout command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rmera/uppout/collect"
	"github.com/rmera/uppout/schema"
	"github.com/rmera/uppout/shell"
	"github.com/rmera/uppout/validate"
	"gopkg.in/yaml.v3"
)

//Config is the whole configuration file.
type Config struct {
	//Simid selects the run in each directory. Empty means the only one present.
	Simid   string         `yaml:"simid,omitempty" validate:"omitempty,len=8,excludesall=."`
	Logging LoggingConfig  `yaml:"logging"`
	Checks  ValidateConfig `yaml:"validate"`
	Shells  ShellsConfig   `yaml:"shells"`
	Collect CollectConfig  `yaml:"collect"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

//ValidateConfig sets the distances under which two atoms, or two bond
//vectors, are taken as the same.
type ValidateConfig struct {
	AtomTolerance float64 `yaml:"atom_tolerance" validate:"gte=0"`
	BondTolerance float64 `yaml:"bond_tolerance" validate:"gte=0"`
}

type ShellsConfig struct {
	Cutoff         float64 `yaml:"cutoff" validate:"gt=0"`
	Tolerance      float64 `yaml:"tolerance" validate:"gte=0"`
	TolFraction    float64 `yaml:"tol_fraction" validate:"gte=0,lt=1"`
	Representative string  `yaml:"representative" validate:"oneof=mean first"`
	Periodic       [3]bool `yaml:"periodic"`
}

//CollectConfig is used by the collect command. Start, End and Step define
//the averaging window, a zero Step takes the last row.
type CollectConfig struct {
	Template      string `yaml:"template,omitempty"`
	Quantity      string `yaml:"quantity" validate:"oneof=averages cumulants totenergy"`
	Workers       int    `yaml:"workers" validate:"gte=1,lte=256"`
	Start         int    `yaml:"start" validate:"gte=0"`
	End           int    `yaml:"end" validate:"gte=0"`
	Step          int    `yaml:"step" validate:"gte=0"`
	Latest        bool   `yaml:"latest"`
	Validate      bool   `yaml:"validate"`
	Strict        bool   `yaml:"strict"`
	SkipStructure bool   `yaml:"skip_structure"`
}

//DefaultConfig returns the configuration used when there is no file.
func DefaultConfig() *Config {
	v := validate.DefaultOptions()
	s := shell.DefaultOptions(3.0)
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Checks:  ValidateConfig{AtomTolerance: v.AtomTolerance, BondTolerance: v.BondTolerance},
		Shells: ShellsConfig{
			Cutoff:         s.Cutoff,
			TolFraction:    s.TolFraction,
			Representative: "mean",
			Periodic:       [3]bool{true, true, true},
		},
		Collect: CollectConfig{Quantity: "averages", Workers: 1},
	}
}

//Load reads the configuration in path over the defaults. A missing file gives
//the defaults. UPPOUT_SIMID and UPPOUT_LOG_LEVEL override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if s := os.Getenv("UPPOUT_SIMID"); s != "" {
		c.Simid = s
	}
	if l := os.Getenv("UPPOUT_LOG_LEVEL"); l != "" {
		c.Logging.Level = strings.ToLower(l)
	}
}

//Save writes the configuration to path, creating its directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

var checker = validator.New()

//Validate checks the field constraints, and that a window end, when given,
//isn't before its start.
func (c *Config) Validate() error {
	if err := checker.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, e := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %q (value %v)", e.Namespace(), e.Tag(), e.Value())
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	if c.Collect.End > 0 && c.Collect.End <= c.Collect.Start {
		return fmt.Errorf("invalid configuration: collect window end %d is not after start %d", c.Collect.End, c.Collect.Start)
	}
	return nil
}

//ValidateOptions returns the options for validate.Check.
func (c *Config) ValidateOptions() validate.Options {
	return validate.Options{AtomTolerance: c.Checks.AtomTolerance, BondTolerance: c.Checks.BondTolerance}
}

//ShellOptions returns the options for shell.Analyze, and the periodic axes.
func (c *Config) ShellOptions() (shell.Options, [3]bool) {
	o := shell.Options{Cutoff: c.Shells.Cutoff, Tolerance: c.Shells.Tolerance, TolFraction: c.Shells.TolFraction, Representative: shell.Mean}
	if c.Shells.Representative == "first" {
		o.Representative = shell.First
	}
	return o, c.Shells.Periodic
}

//CollectOptions returns the options for collect.Collect, and the quantity to aggregate.
func (c *Config) CollectOptions() (collect.Options, collect.Quantity, error) {
	o := collect.DefaultOptions()
	o.Simid = c.Simid
	o.Latest = c.Collect.Latest
	o.LatestPrefix = schema.Averages
	o.SkipStructure = c.Collect.SkipStructure
	o.Validate = c.Collect.Validate
	o.ValidateOptions = c.ValidateOptions()
	o.Workers = c.Collect.Workers
	o.Strict = c.Collect.Strict
	q, err := collect.ByName(c.Collect.Quantity, collect.Window{Start: c.Collect.Start, End: c.Collect.End, Step: c.Collect.Step})
	return o, q, err
}
