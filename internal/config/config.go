package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 yaml 配置并合并环境变量中的密钥，然后应用默认值与校验。
// 这是进程中唯一读取环境变量的地方。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applySecrets()
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets() {
	c.Web.APIKey = firstEnv("TAVILY_API_KEY")
	c.AI.APIKey = firstEnv("XAI_API_KEY", "OPENAI_API_KEY")
	c.Broker.APIKey = firstEnv("ALPACA_API_KEY", "APCA_API_KEY_ID")
	c.Broker.APISecret = firstEnv("ALPACA_API_SECRET", "APCA_API_SECRET_KEY")
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return ""
}
