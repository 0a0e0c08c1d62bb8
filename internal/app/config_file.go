package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections improve readability and map naturally to flags/env.
type FileConfig struct {
	Doc    string `yaml:"doc" json:"doc"`
	Output string `yaml:"output" json:"output"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	AI *struct {
		Enable *bool `yaml:"enable" json:"enable"`
	} `yaml:"ai" json:"ai"`

	Scope struct {
		Kind    string `yaml:"kind" json:"kind"`
		Start   int    `yaml:"start" json:"start"`
		End     int    `yaml:"end" json:"end"`
		Section int    `yaml:"section" json:"section"`
		Indices []int  `yaml:"indices" json:"indices"`
	} `yaml:"scope" json:"scope"`

	Apply struct {
		Items       []string `yaml:"items" json:"items"`
		BatchSize   int      `yaml:"batchSize" json:"batchSize"`
		ChineseFont string   `yaml:"chineseFont" json:"chineseFont"`
		EnglishFont string   `yaml:"englishFont" json:"englishFont"`
	} `yaml:"apply" json:"apply"`

	Cache struct {
		Dir         string `yaml:"dir" json:"dir"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	DryRun       bool `yaml:"dryRun" json:"dryRun"`
	Verbose      bool `yaml:"verbose" json:"verbose"`
	DebugVerbose bool `yaml:"debugVerbose" json:"debugVerbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset/zero in cfg. Flags should already have been parsed; this
// function lets file config supply defaults while preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	// Defaults from flag parsing that file config may override when flags not set
	const (
		scopeKindDefault = "document"
		cacheDirDefault  = ".docfmt-cache"
		batchSizeDefault = 20
	)

	if cfg.DocPath == "" && fc.Doc != "" {
		cfg.DocPath = fc.Doc
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}

	// AI toggle: default on when a model is configured; file config may disable
	if fc.AI != nil && fc.AI.Enable != nil {
		cfg.UseAI = *fc.AI.Enable
	}

	if (cfg.ScopeKind == "" || cfg.ScopeKind == scopeKindDefault) && fc.Scope.Kind != "" {
		cfg.ScopeKind = fc.Scope.Kind
	}
	if cfg.SelectionStart == 0 && fc.Scope.Start > 0 {
		cfg.SelectionStart = fc.Scope.Start
	}
	if cfg.SelectionEnd == 0 && fc.Scope.End > 0 {
		cfg.SelectionEnd = fc.Scope.End
	}
	if cfg.SectionNumber == 0 && fc.Scope.Section > 0 {
		cfg.SectionNumber = fc.Scope.Section
	}
	if len(cfg.Indices) == 0 && len(fc.Scope.Indices) > 0 {
		cfg.Indices = append([]int{}, fc.Scope.Indices...)
	}

	if len(cfg.SelectIDs) == 0 && len(fc.Apply.Items) > 0 {
		cfg.SelectIDs = append([]string{}, fc.Apply.Items...)
	}
	if (cfg.BatchSize == 0 || cfg.BatchSize == batchSizeDefault) && fc.Apply.BatchSize > 0 {
		cfg.BatchSize = fc.Apply.BatchSize
	}
	if cfg.ChineseFont == "" && fc.Apply.ChineseFont != "" {
		cfg.ChineseFont = fc.Apply.ChineseFont
	}
	if cfg.EnglishFont == "" && fc.Apply.EnglishFont != "" {
		cfg.EnglishFont = fc.Apply.EnglishFont
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == cacheDirDefault) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}

	if !cfg.DryRun && fc.DryRun {
		cfg.DryRun = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
	if !cfg.DebugVerbose && fc.DebugVerbose {
		cfg.DebugVerbose = true
	}
}
