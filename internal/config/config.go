// Package config provides configuration types and loading for salesrelay.
package config

// Config is the root configuration struct.
type Config struct {
	Paths    PathsConfig    `json:"paths"`
	Gateway  GatewayConfig  `json:"gateway"`
	Channels ChannelsConfig `json:"channels"`
	Provider ProviderConfig `json:"provider"`
	Sync     SyncConfig     `json:"sync"`
	Stream   StreamConfig   `json:"stream"`
	PMM      PMMConfig      `json:"pmm"`
}

// PathsConfig groups filesystem locations.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// GatewayConfig contains webhook gateway server settings. AuthToken guards
// the sync push endpoints only; webhook ingress is open by design (senders
// must always receive 200).
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}

// ChannelsConfig contains all messaging channel configurations.
type ChannelsConfig struct {
	Slack    SlackConfig    `json:"slack"`
	Telegram TelegramConfig `json:"telegram"`
}

// SlackConfig configures the primary channel.
type SlackConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"ENABLED"`
	BotToken string `json:"botToken" envconfig:"BOT_TOKEN"`
	APIBase  string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// TelegramConfig configures the secondary channel.
type TelegramConfig struct {
	Enabled        bool   `json:"enabled" envconfig:"ENABLED"`
	BotToken       string `json:"botToken" envconfig:"BOT_TOKEN"`
	OperatorChatID string `json:"operatorChatId" envconfig:"OPERATOR_CHAT_ID"`
	APIBase        string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ProviderConfig contains settings for the text-generation collaborator.
// An empty APIKey disables generative composition; the pipeline then sends
// the deterministic template package.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
	Model   string `json:"model" envconfig:"MODEL"`
}

// SyncConfig configures the fire-and-forget push of knowledge and directory
// writes to a remote relay.
type SyncConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	BaseURL string `json:"baseUrl" envconfig:"BASE_URL"`
	Token   string `json:"token" envconfig:"TOKEN"`
}

// StreamConfig configures the Kafka mirror of delivery/feedback records.
type StreamConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Brokers string `json:"brokers" envconfig:"BROKERS"`
	Topic   string `json:"topic" envconfig:"TOPIC"`
}

// PMMConfig names the operator notification target.
type PMMConfig struct {
	SlackChannel string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Paths:   PathsConfig{DataDir: "~/.salesrelay/data"},
		Gateway: GatewayConfig{Host: "0.0.0.0", Port: 8090},
		Provider: ProviderConfig{
			APIBase: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Stream: StreamConfig{Topic: "salesrelay-events"},
	}
}
