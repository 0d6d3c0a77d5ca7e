package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type daemonConfig struct {
	HTTP     httpConfig     `yaml:"http" json:"http"`
	Specs    specsConfig    `yaml:"specs" json:"specs"`
	Pipeline pipelineConfig `yaml:"pipeline" json:"pipeline"`
}

type httpConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type specsConfig struct {
	Dir       string `yaml:"dir" json:"dir"`
	HotReload *bool  `yaml:"hot_reload" json:"hot_reload"`
}

func loadDaemonConfig(path string) (*daemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &daemonConfig{}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config yaml: %w", err)
		}
	}
	return cfg, nil
}

func applyDaemonConfig(cfg *daemonConfig, setFlags map[string]bool) {
	if cfg == nil {
		return
	}
	if cfg.HTTP.Addr != "" && !setFlags["http-addr"] {
		*httpAddr = cfg.HTTP.Addr
	}
	if cfg.Specs.Dir != "" && !setFlags["spec-dir"] {
		*specDir = cfg.Specs.Dir
	}
	if cfg.Specs.HotReload != nil && !setFlags["hot-reload"] {
		*hotReload = *cfg.Specs.HotReload
	}
}
