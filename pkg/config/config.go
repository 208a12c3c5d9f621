package config

// Relay definition relay_service YAML structure
type Relay struct {
	Port         string `mapstructure:"port"`
	HistoryMax   int    `mapstructure:"history_max"`
	PreviewLimit int    `mapstructure:"preview_limit"`
	DefaultRoom  string `mapstructure:"default_room"`

	Participants []SeedParticipant `mapstructure:"participants"`
	Rooms        []SeedRoom        `mapstructure:"rooms"`
}

// Client definition chat_client YAML structure
type Client struct {
	ServerURL   string `mapstructure:"server_url"`
	DefaultRoom string `mapstructure:"default_room"`
}

// SeedParticipant 目錄預載的參與者
type SeedParticipant struct {
	ID     string `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	Avatar string `mapstructure:"avatar"`
}

// SeedRoom 啟動時建立的聊天室
type SeedRoom struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}
