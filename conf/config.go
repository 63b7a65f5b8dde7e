// Package conf loads the single typed configuration tree every component in
// the process is constructed from. It follows the same shape the rest of the
// codebase already uses: every nested struct carries a `conf:"..."` tag,
// mirrored into `yaml` and `json` so the same tree can be previewed, dumped,
// or loaded from a file, the environment, or both.
package conf

import (
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/Shaswata28/studymate/internal/brain"
	"github.com/Shaswata28/studymate/internal/brainclient"
	"github.com/Shaswata28/studymate/internal/chat"
	"github.com/Shaswata28/studymate/internal/compose"
	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/materials"
	"github.com/Shaswata28/studymate/internal/pkg/xcache"
	"github.com/Shaswata28/studymate/internal/queue"
	"github.com/Shaswata28/studymate/internal/retrieval"
	"github.com/Shaswata28/studymate/internal/server"
	"github.com/Shaswata28/studymate/internal/server/biz"
	"github.com/Shaswata28/studymate/internal/server/db"
	"github.com/Shaswata28/studymate/internal/server/gc"
	"github.com/Shaswata28/studymate/internal/supervisor"
	"github.com/Shaswata28/studymate/internal/tracing"
)

// Config is the top-level tree. Every leaf maps to a §6.3 configuration key;
// nested structs add the ambient stack (logging, db, caching) the distilled
// spec leaves implicit.
type Config struct {
	APIServer server.Config `conf:"server" yaml:"server" json:"server"`
	Log       log.Config    `conf:"log" yaml:"log" json:"log"`
	DB        db.Config     `conf:"db" yaml:"db" json:"db"`

	Brain      BrainConfig      `conf:"brain" yaml:"brain" json:"brain"`
	Materials  materials.Config `conf:"materials" yaml:"materials" json:"materials"`
	Queue      queue.Config     `conf:"queue" yaml:"queue" json:"queue"`
	Retrieval  retrieval.Config `conf:"retrieval" yaml:"retrieval" json:"retrieval"`
	Compose    compose.Config   `conf:"compose" yaml:"compose" json:"compose"`
	Chat       chat.Config      `conf:"chat" yaml:"chat" json:"chat"`
	PersonalizationCache xcache.Config `conf:"personalization_cache" yaml:"personalization_cache" json:"personalization_cache"`

	FileStore       biz.FileStoreConfig                 `conf:"file_store" yaml:"file_store" json:"file_store"`
	Personalization biz.ExternalPersonalizationConfig    `conf:"personalization" yaml:"personalization" json:"personalization"`
	GC              gc.Config                            `conf:"gc" yaml:"gc" json:"gc"`
}

// BrainConfig groups the Brain Client (C5) and Brain Supervisor (C4) knobs;
// the embedded residency/model selection lives in brain.ServiceConfig since
// that half is only read by the Brain process itself, spawned with its own
// environment by the supervisor.
type BrainConfig struct {
	Supervisor supervisor.Config   `conf:"supervisor" yaml:"supervisor" json:"supervisor"`
	Client     brainclient.Config  `conf:"client" yaml:"client" json:"client"`
	Service    brain.ServiceConfig `conf:"service" yaml:"service" json:"service"`
}

// Default returns the tree's zero-config defaults, applied before Load
// overlays the environment/file on top.
func Default() Config {
	return Config{
		APIServer: server.Config{
			Port:              8080,
			Host:              "0.0.0.0",
			Name:              "studymate",
			ReadTimeout:       30 * time.Second,
			RequestTimeout:    30 * time.Second,
			LLMRequestTimeout: 120 * time.Second,
			Trace: tracing.Config{
				TraceHeader: "X-Trace-Id",
			},
		},
		Log: log.Config{
			Level:  "info",
			Format: "json",
		},
		DB: db.Config{
			Dialect: "sqlite",
			DSN:     "file:studymate.db?_fk=1",
		},
		Brain: BrainConfig{
			Supervisor: supervisor.Config{
				Command:         "./brain",
				StartupDeadline: 60 * time.Second,
				PollInterval:    500 * time.Millisecond,
				StopGrace:       5 * time.Second,
			},
			Client: brainclient.Config{
				Endpoint:      "http://127.0.0.1:8900",
				ChatTimeout:   30 * time.Second,
				EmbedTimeout:  5 * time.Second,
				VisionTimeout: 3 * time.Minute,
				HealthTimeout: 2 * time.Second,
			},
			Service: brain.ServiceConfig{
				Port:         8900,
				CoreModel:    "llama3.1",
				VisionModel:  "llama3.2-vision",
				EmbedModel:   "mxbai-embed-large",
				AudioModel:   "",
				EmbedDim:     1024,
				RuntimeURL:   "http://127.0.0.1:11434",
			},
		},
		Materials: materials.Config{
			ProcessingTimeout:  5 * time.Minute,
			MaxUploadBytes:     25 << 20,
			AllowedMediaTypes:  []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "application/pdf"},
			PageRenderDPI:      150,
		},
		Queue: queue.Config{
			Concurrency: 2,
			BufferSize:  64,
			EnqueueWait: 50 * time.Millisecond,
		},
		Retrieval: retrieval.Config{
			TopKDefault: 3,
			TopKMax:     10,
			ExcerptChars: 280,
			LRUCourses:   64,
		},
		Compose: compose.Config{
			HistoryTurns:     10,
			PromptCharBudget: 8000,
			MinQueryLen:      3,
			Persona:          "You are StudyMate, a focused study companion. Answer clearly and cite the provided materials when relevant.",
		},
		Chat: chat.Config{
			AllowedAttachmentTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp", "audio/wav", "audio/mpeg", "audio/m4a"},
		},
		PersonalizationCache: xcache.Config{
			Mode: xcache.ModeMemory,
			Memory: xcache.MemoryConfig{
				Expiration:      30 * time.Second,
				CleanupInterval: time.Minute,
			},
		},
		FileStore: biz.FileStoreConfig{
			Backend:   "fs",
			Directory: "./data/materials",
		},
		Personalization: biz.ExternalPersonalizationConfig{
			Timeout: 3 * time.Second,
		},
		GC: gc.Config{
			CRON:              "*/5 * * * *",
			ProcessingTimeout: 10 * time.Minute,
		},
	}
}

// Load reads configuration from (in ascending priority) defaults, an
// optional config file (STUDYMATE_CONFIG_FILE or ./studymate.yaml) and
// environment variables prefixed STUDYMATE_, using "_" in place of the
// struct tree's "." nesting, then unmarshals into Config using the `conf`
// struct tag (viper normally reads `mapstructure`; DecoderConfigOption below
// rebinds it so every struct in the tree only needs one tag).
func Load() (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("studymate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("studymate")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/studymate")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "conf"
	}); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
