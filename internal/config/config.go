// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Server    ServerConfig    `mapstructure:"server"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

type AppConfig struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

type LLMConfig struct {
	Provider        string  `mapstructure:"provider"`
	Model           string  `mapstructure:"model"`
	EmbedModel      string  `mapstructure:"embed_model"`
	TranscribeModel string  `mapstructure:"transcribe_model"`
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	MaxRetries      int     `mapstructure:"max_retries"`
	// Per-minute limits for the provider; 0 disables the limit. Both zero
	// leaves the provider unlimited.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	TokensPerMinute   int `mapstructure:"tokens_per_minute"`
	BurstSize         int `mapstructure:"burst_size"`
}

type VectorConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	DefaultCollection string `mapstructure:"default_collection"`
	TopK              int    `mapstructure:"top_k"`
	PerVideo          bool   `mapstructure:"per_video"`
}

type RetrievalConfig struct {
	MaxContextChunks int     `mapstructure:"max_context_chunks"`
	LexicalWeight    float64 `mapstructure:"lexical_weight"`
	CoverageBonus    float64 `mapstructure:"coverage_bonus"`
	AcronymBonus     float64 `mapstructure:"acronym_bonus"`
	LeadChunkBonus   float64 `mapstructure:"lead_chunk_bonus"`
}

type IngestConfig struct {
	UploadDir     string `mapstructure:"upload_dir"`
	AudioDir      string `mapstructure:"audio_dir"`
	TranscriptDir string `mapstructure:"transcript_dir"`
	ChunkSize     int    `mapstructure:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap"`
	YtdlpBin      string `mapstructure:"ytdlp_bin"`
	FfmpegBin     string `mapstructure:"ffmpeg_bin"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	APIPrefix   string   `mapstructure:"api_prefix"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "vidrag", Env: "development"},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			EmbedModel:  "text-embedding-3-small",
			Temperature: 0.0,
			MaxRetries:  3,
		},
		Vector: VectorConfig{
			Host:              "localhost",
			Port:              6334,
			DefaultCollection: "video_chunks",
			TopK:              5,
			PerVideo:          true,
		},
		Retrieval: RetrievalConfig{
			MaxContextChunks: 6,
			LexicalWeight:    0.2,
			CoverageBonus:    0.25,
			AcronymBonus:     0.15,
			LeadChunkBonus:   0.03,
		},
		Ingest: IngestConfig{
			UploadDir:     "./data/uploads",
			AudioDir:      "./data/audio",
			TranscriptDir: "./data/transcripts",
			ChunkSize:     1200,
			ChunkOverlap:  200,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			APIPrefix:   "/api/v1",
			CORSOrigins: []string{"http://localhost:4200"},
		},
		Tracing: TracingConfig{SampleRate: 1.0},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}
	if c.Vector.TopK <= 0 {
		warnings = append(warnings, fmt.Sprintf("vector top_k %d is not positive; the default will apply", c.Vector.TopK))
	}
	if c.Retrieval.MaxContextChunks <= 0 {
		warnings = append(warnings, fmt.Sprintf("retrieval max_context_chunks %d is not positive; the default will apply", c.Retrieval.MaxContextChunks))
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize && c.Ingest.ChunkSize > 0 {
		warnings = append(warnings, fmt.Sprintf("chunk_overlap %d >= chunk_size %d; overlap will be clamped", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize))
	}

	return warnings
}

// EnsureDirs creates the ingest working directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Ingest.UploadDir, c.Ingest.AudioDir, c.Ingest.TranscriptDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// Load reads configuration from file and environment. A missing file is
// tolerated; environment variables (VIDRAG_ prefix) always apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VIDRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

// setDefaults registers every known key so environment-only overrides are
// visible to Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.env", d.App.Env)
	v.SetDefault("app.debug", d.App.Debug)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.embed_model", d.LLM.EmbedModel)
	v.SetDefault("llm.transcribe_model", d.LLM.TranscribeModel)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.requests_per_minute", d.LLM.RequestsPerMinute)
	v.SetDefault("llm.tokens_per_minute", d.LLM.TokensPerMinute)
	v.SetDefault("llm.burst_size", d.LLM.BurstSize)

	v.SetDefault("vector.host", d.Vector.Host)
	v.SetDefault("vector.port", d.Vector.Port)
	v.SetDefault("vector.default_collection", d.Vector.DefaultCollection)
	v.SetDefault("vector.top_k", d.Vector.TopK)
	v.SetDefault("vector.per_video", d.Vector.PerVideo)

	v.SetDefault("retrieval.max_context_chunks", d.Retrieval.MaxContextChunks)
	v.SetDefault("retrieval.lexical_weight", d.Retrieval.LexicalWeight)
	v.SetDefault("retrieval.coverage_bonus", d.Retrieval.CoverageBonus)
	v.SetDefault("retrieval.acronym_bonus", d.Retrieval.AcronymBonus)
	v.SetDefault("retrieval.lead_chunk_bonus", d.Retrieval.LeadChunkBonus)

	v.SetDefault("ingest.upload_dir", d.Ingest.UploadDir)
	v.SetDefault("ingest.audio_dir", d.Ingest.AudioDir)
	v.SetDefault("ingest.transcript_dir", d.Ingest.TranscriptDir)
	v.SetDefault("ingest.chunk_size", d.Ingest.ChunkSize)
	v.SetDefault("ingest.chunk_overlap", d.Ingest.ChunkOverlap)
	v.SetDefault("ingest.ytdlp_bin", d.Ingest.YtdlpBin)
	v.SetDefault("ingest.ffmpeg_bin", d.Ingest.FfmpegBin)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.api_prefix", d.Server.APIPrefix)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
