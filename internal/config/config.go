package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type BedrockConfig struct {
	AgentID      string `mapstructure:"agent_id"`
	AgentAliasID string `mapstructure:"agent_alias_id"`
}

type TranscribeConfig struct {
	Language   string `mapstructure:"language"`
	SampleRate int    `mapstructure:"sample_rate"`
}

type Config struct {
	Mode       string           `mapstructure:"mode"`
	Port       int              `mapstructure:"port"`
	ReadLimit  int64            `mapstructure:"read_limit"`
	PingPeriod time.Duration    `mapstructure:"ping_period"`
	Secret     string           `mapstructure:"secret"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Bedrock    BedrockConfig    `mapstructure:"bedrock"`
	Transcribe TranscribeConfig `mapstructure:"transcribe"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 4000)
	v.SetDefault("read_limit", 1048576)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("bedrock.agent_alias_id", "TSTALIASID")
	v.SetDefault("transcribe.language", "es-ES")
	v.SetDefault("transcribe.sample_rate", 16000)

	// Deployment settings arrive via env in most environments.
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("aws.region", "AWS_REGION")
	_ = v.BindEnv("bedrock.agent_id", "BEDROCK_AGENT_ID")
	_ = v.BindEnv("bedrock.agent_alias_id", "BEDROCK_AGENT_ALIAS_ID")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Region: %s\n", cfg.Mode, cfg.Port, cfg.AWS.Region)
	return &cfg, nil
}
