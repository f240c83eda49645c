// Package config provides configuration types and loading for glbot.
package config

import "strings"

// Config is the root configuration struct.
// Top-level groups: Server, SeaTalk, Drive, History, Sentry.
type Config struct {
	Server  ServerConfig  `json:"server"`
	SeaTalk SeaTalkConfig `json:"seatalk"`
	Drive   DriveConfig   `json:"drive"`
	History HistoryConfig `json:"history"`
	Sentry  SentryConfig  `json:"sentry"`
}

// ServerConfig groups HTTP server settings.
type ServerConfig struct {
	Addr     string `json:"addr" envconfig:"ADDR"`
	Timezone string `json:"timezone" envconfig:"TZ"`
}

// SeaTalkConfig configures the SeaTalk open-platform app.
type SeaTalkConfig struct {
	APIBase   string `json:"apiBase" envconfig:"API_BASE"`
	AppID     string `json:"appId" envconfig:"APP_ID"`
	AppSecret string `json:"appSecret" envconfig:"APP_SECRET"`
	BotID     string `json:"botId" envconfig:"BOT_ID"`
	TokenURL  string `json:"tokenUrl" envconfig:"TOKEN_URL"`
}

// DriveConfig configures the Google Drive folders holding the ledger files.
type DriveConfig struct {
	CredentialsJSON string `json:"credentialsJson" envconfig:"CREDENTIALS_JSON"`
	SourceFolderID  string `json:"sourceFolderId" envconfig:"SOURCE_FOLDER_ID"`
	OutputFolderID  string `json:"outputFolderId" envconfig:"OUTPUT_FOLDER_ID"`
}

// HistoryConfig configures the lookup-audit sqlite store.
type HistoryConfig struct {
	Path string `json:"path" envconfig:"PATH"`
}

// SentryConfig configures optional error reporting.
type SentryConfig struct {
	DSN string `json:"dsn" envconfig:"DSN"`
}

// Ready reports whether every drive setting needed for ledger lookups is set.
func (d DriveConfig) Ready() bool {
	return strings.TrimSpace(d.CredentialsJSON) != "" &&
		strings.TrimSpace(d.SourceFolderID) != "" &&
		strings.TrimSpace(d.OutputFolderID) != ""
}
