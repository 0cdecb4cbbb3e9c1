package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the console.
type Config struct {
	Server  ServerConfig
	Audio   AudioConfig
	Session SessionConfig
	Store   StoreConfig
}

type ServerConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type AudioConfig struct {
	SampleRate      int
	Channels        int
	ChunkSamples    int
	UploadMaxBytes  int64
	RecorderCommand string
	InputFormat     string
	InputDevice     string
}

type SessionConfig struct {
	FeedSettlingDelay  time.Duration
	ReconnectBackoff   time.Duration
	HeartbeatInterval  time.Duration
	ProcessingWait     time.Duration
	AttendancePollRate time.Duration
}

type StoreConfig struct {
	Path string
}

// Load resolves configuration from a .env file (if present) and environment
// variables with sensible defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server: ServerConfig{
			BaseURL:        envOrDefault("MEETINGSENSE_SERVER_URL", "http://127.0.0.1:8000"),
			RequestTimeout: envOrDefaultDuration("MEETINGSENSE_REQUEST_TIMEOUT_MS", 20*time.Second),
		},
		Audio: AudioConfig{
			SampleRate:      envOrDefaultInt("MEETINGSENSE_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("MEETINGSENSE_CHANNELS", 1),
			ChunkSamples:    envOrDefaultInt("MEETINGSENSE_AUDIO_CHUNK_SAMPLES", 4096),
			UploadMaxBytes:  int64(envOrDefaultInt("MEETINGSENSE_UPLOAD_MAX_BYTES", 10*1024*1024)),
			RecorderCommand: envOrDefault("MEETINGSENSE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("MEETINGSENSE_AUDIO_INPUT_FORMAT", defaultInputFormat()),
			InputDevice:     envOrDefault("MEETINGSENSE_AUDIO_INPUT_DEVICE", "default"),
		},
		Session: SessionConfig{
			FeedSettlingDelay:  envOrDefaultDuration("MEETINGSENSE_FEED_SETTLE_MS", 2*time.Second),
			ReconnectBackoff:   envOrDefaultDuration("MEETINGSENSE_RECONNECT_BACKOFF_MS", 3*time.Second),
			HeartbeatInterval:  envOrDefaultDuration("MEETINGSENSE_HEARTBEAT_MS", 30*time.Second),
			ProcessingWait:     envOrDefaultDuration("MEETINGSENSE_PROCESSING_WAIT_MS", 3*time.Second),
			AttendancePollRate: envOrDefaultDuration("MEETINGSENSE_ATTENDANCE_POLL_MS", 5*time.Second),
		},
		Store: StoreConfig{
			Path: envOrDefault("MEETINGSENSE_STATE_FILE", defaultStatePath()),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSamples < 256 {
		cfg.Audio.ChunkSamples = 4096
	}
	if cfg.Audio.UploadMaxBytes <= 0 {
		cfg.Audio.UploadMaxBytes = 10 * 1024 * 1024
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	return cfg, nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".meetingsense_state.json"
	}
	return home + "/.config/meetingsense/state.json"
}

func defaultInputFormat() string {
	// ffmpeg input format differs per platform; pulse covers the common
	// Linux case and can be overridden by env.
	return "pulse"
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}
