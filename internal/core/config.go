package core

import (
	"time"
)

const (
	// DefaultMinTrackLength is the shortest track that is allowed to play.
	DefaultMinTrackLength = 5 * time.Second
	// DefaultShortNoticeTTL is how long short-track and stuck notices stay visible.
	DefaultShortNoticeTTL = 5000 * time.Millisecond
	// DefaultMoveNoticeTTL is how long voice move notices stay visible.
	DefaultMoveNoticeTTL = 8000 * time.Millisecond
	// DefaultFarewellTTL is how long the queue-empty farewell stays visible.
	DefaultFarewellTTL = 80000 * 10 * 2 * time.Millisecond
	// DefaultEventTimeout bounds the I/O of a single lifecycle event.
	DefaultEventTimeout = 15 * time.Second
	// DefaultNoticeLimitPerMinute caps notices per guild and kind.
	DefaultNoticeLimitPerMinute = 6
	// DefaultReconnectMaxAttempts is how often a persistent session is recreated
	// before giving up. Retrying is opt-in.
	DefaultReconnectMaxAttempts = 1
	// DefaultReconnectRetryDelay separates reconnection attempts.
	DefaultReconnectRetryDelay = 2 * time.Second
)

// Config is the complete runtime configuration of guildplayer.
type Config struct {
	Discord   DiscordConfig
	Store     StoreConfig
	Server    ServerConfig
	Log       LogConfig
	App       AppConfig
	Reconnect ReconnectConfig
	Style     StyleConfig
}

type DiscordConfig struct {
	Token string
}

type StoreConfig struct {
	Path                   string
	CacheSize              int
	BloomFalsePositiveRate float64
}

type ServerConfig struct {
	Enabled      bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language             string
	EventTimeout         time.Duration
	EventBufferSize      int
	NoticeLimitPerMinute int
	MinTrackLength       time.Duration
	ShortNoticeTTL       time.Duration
	MoveNoticeTTL        time.Duration
	FarewellTTL          time.Duration
	HistorySize          int
	DefaultVolume        int
}

type ReconnectConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// StyleConfig holds the presentation constants shared by every rendered message.
type StyleConfig struct {
	Color       int
	BulletEmoji string
	Buttons     ButtonEmojis
}

// ButtonEmojis holds the custom emoji IDs of the status card controls.
type ButtonEmojis struct {
	Previous    string
	PauseResume string
	Stop        string
	Settings    string
	Skip        string
}

func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:                   "./guildplayer.db",
			CacheSize:              1000,
			BloomFalsePositiveRate: 0.001,
		},
		Server: ServerConfig{
			Enabled:      true,
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language:             "en",
			EventTimeout:         DefaultEventTimeout,
			EventBufferSize:      64,
			NoticeLimitPerMinute: DefaultNoticeLimitPerMinute,
			MinTrackLength:       DefaultMinTrackLength,
			ShortNoticeTTL:       DefaultShortNoticeTTL,
			MoveNoticeTTL:        DefaultMoveNoticeTTL,
			FarewellTTL:          DefaultFarewellTTL,
			HistorySize:          50,
			DefaultVolume:        100,
		},
		Reconnect: ReconnectConfig{
			MaxAttempts: DefaultReconnectMaxAttempts,
			RetryDelay:  DefaultReconnectRetryDelay,
		},
		Style: StyleConfig{
			Color:       0x2B2D31,
			BulletEmoji: "<a:x_dot:1345324448491769877>",
			Buttons: ButtonEmojis{
				Previous:    "1131847086053269575",
				PauseResume: "1131847861299068948",
				Stop:        "1301593382057152542",
				Settings:    "1131847099361792082",
				Skip:        "1131847093925969990",
			},
		},
	}
}
