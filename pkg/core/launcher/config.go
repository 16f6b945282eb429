// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package launcher

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// OPEN3D_LAUNCHER is the environment variable with the default launcher configuration to use.
//
// See ParseConfig for the format of the configuration string.
const OPEN3D_LAUNCHER = "OPEN3D_LAUNCHER"

// DefaultGrain is the minimum number of workloads handed to one task, unless configured otherwise.
const DefaultGrain = 32768

// DefaultConfig is the launcher configuration used by Default if OPEN3D_LAUNCHER is not set.
//
// See ParseConfig for the format of the configuration string.
var DefaultConfig string

// Config holds the parameters of a Launcher.
type Config struct {
	// Parallelism is the soft limit of tasks running concurrently:
	// 0 runs everything in the calling goroutine, a negative value means unlimited.
	Parallelism int

	// Grain is the minimum number of workloads run by one task.
	Grain int64
}

// DefaultValues returns the configuration used for keys not given in a configuration string.
func DefaultValues() Config {
	return Config{Parallelism: runtime.NumCPU(), Grain: DefaultGrain}
}

// ParseConfig parses a configuration string formatted as "key=value[,key=value...]".
//
// Valid keys are "parallelism" (0 for sequential, -1 for unlimited) and "grain" (> 0).
// Missing keys take the values from DefaultValues. An empty string returns the defaults.
func ParseConfig(config string) (Config, error) {
	cfg := DefaultValues()
	config = strings.TrimSpace(config)
	if config == "" {
		return cfg, nil
	}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return cfg, errors.Errorf("launcher config %q: option %q is not in the form key=value", config, part)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case "parallelism":
			v, err := strconv.Atoi(value)
			if err != nil {
				return cfg, errors.Wrapf(err, "launcher config %q: invalid parallelism", config)
			}
			if v < 0 {
				v = -1
			}
			cfg.Parallelism = v
		case "grain":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return cfg, errors.Wrapf(err, "launcher config %q: invalid grain", config)
			}
			if v <= 0 {
				return cfg, errors.Errorf("launcher config %q: grain must be > 0, got %d", config, v)
			}
			cfg.Grain = v
		default:
			return cfg, errors.Errorf("launcher config %q: unknown key %q, valid keys are \"parallelism\" and \"grain\"", config, key)
		}
	}
	return cfg, nil
}

// String returns the configuration in the format accepted by ParseConfig.
func (c Config) String() string {
	return "parallelism=" + strconv.Itoa(c.Parallelism) + ",grain=" + strconv.FormatInt(c.Grain, 10)
}

var (
	defaultLauncher     *Launcher
	defaultLauncherOnce sync.Once
)

// Default returns the shared default Launcher. It is created on first use from:
//
// 1. The environment variable OPEN3D_LAUNCHER, if defined.
// 2. Next the variable DefaultConfig, if not empty.
// 3. DefaultValues otherwise.
//
// An invalid configuration is logged and the defaults are used instead.
func Default() *Launcher {
	defaultLauncherOnce.Do(func() {
		config, found := os.LookupEnv(OPEN3D_LAUNCHER)
		source := "$" + OPEN3D_LAUNCHER
		if !found {
			config, source = DefaultConfig, "launcher.DefaultConfig"
		}
		l, err := New(config)
		if err != nil {
			klog.Warningf("Invalid %s, using defaults: %v", source, err)
			l = NewWithConfig(DefaultValues())
		}
		klog.V(1).Infof("Default launcher: %s", l)
		defaultLauncher = l
	})
	return defaultLauncher
}
