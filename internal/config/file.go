package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for file decoding. Unset keys stay nil so they
// do not clobber defaults.
type fileConfig struct {
	Server struct {
		Host               *string `toml:"host" yaml:"host" json:"host"`
		Port               *string `toml:"port" yaml:"port" json:"port"`
		RequestTimeout     *string `toml:"request_timeout" yaml:"request_timeout" json:"request_timeout"`
		ImageFetchTimeout  *string `toml:"image_fetch_timeout" yaml:"image_fetch_timeout" json:"image_fetch_timeout"`
		AnalysisTimeout    *string `toml:"analysis_timeout" yaml:"analysis_timeout" json:"analysis_timeout"`
		MaxRequestBodySize *int64  `toml:"max_request_body_size" yaml:"max_request_body_size" json:"max_request_body_size"`
		LogLevel           *string `toml:"log_level" yaml:"log_level" json:"log_level"`
	} `toml:"server" yaml:"server" json:"server"`

	Detector struct {
		MaxSamples         *int  `toml:"max_samples" yaml:"max_samples" json:"max_samples"`
		MinTrainingSamples *int  `toml:"min_training_samples" yaml:"min_training_samples" json:"min_training_samples"`
		CacheSize          *int  `toml:"cache_size" yaml:"cache_size" json:"cache_size"`
		EventPhotoRule     *bool `toml:"event_photo_rule" yaml:"event_photo_rule" json:"event_photo_rule"`
		AuxiliaryFeatures  *bool `toml:"auxiliary_features" yaml:"auxiliary_features" json:"auxiliary_features"`
		ParallelExtraction *bool `toml:"parallel_extraction" yaml:"parallel_extraction" json:"parallel_extraction"`
		MaxWorkers         *int  `toml:"max_workers" yaml:"max_workers" json:"max_workers"`
	} `toml:"detector" yaml:"detector" json:"detector"`

	Model struct {
		Path       *string `toml:"path" yaml:"path" json:"path"`
		SnapshotDB *string `toml:"snapshot_db" yaml:"snapshot_db" json:"snapshot_db"`
	} `toml:"model" yaml:"model" json:"model"`

	Storage struct {
		Backend      *string  `toml:"backend" yaml:"backend" json:"backend"`
		AzureAccount *string  `toml:"azure_account" yaml:"azure_account" json:"azure_account"`
		AzureKey     *string  `toml:"azure_key" yaml:"azure_key" json:"azure_key"`
		LocalRoot    *string  `toml:"local_root" yaml:"local_root" json:"local_root"`
		AllowedHosts []string `toml:"allowed_hosts" yaml:"allowed_hosts" json:"allowed_hosts"`
	} `toml:"storage" yaml:"storage" json:"storage"`

	Watermark struct {
		Scan     *bool   `toml:"scan" yaml:"scan" json:"scan"`
		Language *string `toml:"language" yaml:"language" json:"language"`
	} `toml:"watermark" yaml:"watermark" json:"watermark"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension: %q", filepath.Ext(path))
	}

	return fc.apply(cfg)
}

func (fc *fileConfig) apply(cfg *Config) error {
	setString(&cfg.Host, fc.Server.Host)
	setString(&cfg.Port, fc.Server.Port)
	for _, d := range []struct {
		name string
		dst  *time.Duration
		src  *string
	}{
		{"request_timeout", &cfg.RequestTimeout, fc.Server.RequestTimeout},
		{"image_fetch_timeout", &cfg.ImageFetchTimeout, fc.Server.ImageFetchTimeout},
		{"analysis_timeout", &cfg.AnalysisTimeout, fc.Server.AnalysisTimeout},
	} {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(*d.src))
		if err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.dst = v
	}
	if fc.Server.MaxRequestBodySize != nil {
		cfg.MaxRequestBodySize = *fc.Server.MaxRequestBodySize
	}
	setString(&cfg.LogLevel, fc.Server.LogLevel)

	setInt(&cfg.MaxSamples, fc.Detector.MaxSamples)
	setInt(&cfg.MinTrainingSamples, fc.Detector.MinTrainingSamples)
	setInt(&cfg.CacheSize, fc.Detector.CacheSize)
	setBool(&cfg.EventPhotoRule, fc.Detector.EventPhotoRule)
	setBool(&cfg.AuxiliaryFeatures, fc.Detector.AuxiliaryFeatures)
	setBool(&cfg.ParallelExtraction, fc.Detector.ParallelExtraction)
	setInt(&cfg.MaxWorkers, fc.Detector.MaxWorkers)

	setString(&cfg.ModelPath, fc.Model.Path)
	setString(&cfg.SnapshotDB, fc.Model.SnapshotDB)

	setString(&cfg.StorageBackend, fc.Storage.Backend)
	setString(&cfg.AzureStorageAccount, fc.Storage.AzureAccount)
	setString(&cfg.AzureStorageKey, fc.Storage.AzureKey)
	setString(&cfg.LocalImageRoot, fc.Storage.LocalRoot)
	if len(fc.Storage.AllowedHosts) > 0 {
		cfg.AllowedHosts = fc.Storage.AllowedHosts
	}

	setBool(&cfg.WatermarkScan, fc.Watermark.Scan)
	setString(&cfg.WatermarkLanguage, fc.Watermark.Language)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
