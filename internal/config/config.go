package config

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/triage_inbox/backend/internal/models"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`
	SeedCSVPath     string        `mapstructure:"SEED_CSV_PATH"`
	SeedFromDB      bool          `mapstructure:"SEED_FROM_DB"`
	DirectoryFile   string        `mapstructure:"DIRECTORY_FILE"`
	DefaultAgentID  string        `mapstructure:"DEFAULT_AGENT_ID"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("SEED_CSV_PATH", "data/messages.csv")
	v.SetDefault("SEED_FROM_DB", false)
	v.SetDefault("DIRECTORY_FILE", "")
	v.SetDefault("DEFAULT_AGENT_ID", "agent_1")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Directory is the operator-side configuration the engine only echoes back.
type Directory struct {
	Agents          []models.Agent          `mapstructure:"agents"`
	CannedResponses []models.CannedResponse `mapstructure:"canned_responses"`
}

// LoadDirectory reads agents and canned responses from a YAML or JSON file.
// An empty path or a missing file yields the built-in directory.
func LoadDirectory(path string) (Directory, error) {
	if path == "" {
		return DefaultDirectory(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultDirectory(), nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Directory{}, err
	}
	var dir Directory
	if err := v.Unmarshal(&dir); err != nil {
		return Directory{}, err
	}
	return dir, nil
}

func DefaultDirectory() Directory {
	return Directory{
		Agents: []models.Agent{
			{ID: "agent_1", Name: "Support Agent", Email: "agent1@support.local", Role: "Support Agent", Status: "Online", Avatar: "https://picsum.photos/seed/agent_1/200/200"},
			{ID: "agent_2", Name: "Senior Agent", Email: "agent2@support.local", Role: "Team Lead", Status: "Away", Avatar: "https://picsum.photos/seed/agent_2/200/200"},
		},
		CannedResponses: []models.CannedResponse{
			{ID: "cr_1", Label: "Greeting", Text: "Hello, thank you for reaching out. How can I help you today?"},
			{ID: "cr_2", Label: "Disbursement", Text: "Your loan is being processed and will be disbursed shortly."},
			{ID: "cr_3", Label: "Clearance", Text: "Once your balance is cleared, your clearance certificate will be issued within 48 hours."},
			{ID: "cr_4", Label: "Fraud", Text: "We have escalated your report to our fraud team. Please do not share your PIN with anyone."},
		},
	}
}
