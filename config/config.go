package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"bakeslip/model"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr             string          `yaml:"listenAddr" json:"listenAddr"`
	DBPath                 string          `yaml:"dbPath" json:"dbPath"`
	LogLevel               string          `yaml:"logLevel" json:"logLevel"`
	OpenBrowser            bool            `yaml:"openBrowser" json:"openBrowser"`
	GeminiModel            string          `yaml:"geminiModel" json:"geminiModel"`
	GeminiAPIKey           string          `yaml:"geminiApiKey,omitempty" json:"-"`
	DefaultSliceMode       model.SliceMode `yaml:"defaultSliceMode" json:"defaultSliceMode"`
	MaxParallelExtractions int             `yaml:"maxParallelExtractions" json:"maxParallelExtractions"`
	CompanyName            string          `yaml:"companyName" json:"companyName"`
	ArchiveFolderPath      string          `yaml:"archiveFolderPath" json:"archiveFolderPath"`
	InboxFolderPath        string          `yaml:"inboxFolderPath" json:"inboxFolderPath"`
	ChromeBin              string          `yaml:"chromeBin" json:"chromeBin"`
}

var (
	cfg  = Defaults()
	mu   sync.RWMutex
	path = "./bakeslip.yaml"
)

// Defaults は設定ファイルがない場合の値です。
func Defaults() Config {
	return Config{
		ListenAddr:             ":8080",
		DBPath:                 "./bakeslip.db",
		LogLevel:               "info",
		GeminiModel:            "gemini-2.5-flash",
		DefaultSliceMode:       model.SliceDouble,
		MaxParallelExtractions: 8,
		CompanyName:            "Johnston Mooney & O'Brien",
	}
}

// SetPath は設定ファイルの場所を変更します。
func SetPath(p string) {
	mu.Lock()
	defer mu.Unlock()
	path = p
}

// Path は現在の設定ファイルの場所です。
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return path
}

func applyDefaults(c *Config) {
	d := Defaults()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.GeminiModel == "" {
		c.GeminiModel = d.GeminiModel
	}
	if c.DefaultSliceMode == "" {
		c.DefaultSliceMode = d.DefaultSliceMode
	}
	if c.MaxParallelExtractions <= 0 {
		c.MaxParallelExtractions = d.MaxParallelExtractions
	}
}

// Validate は保存前の値の検証です。
func (c Config) Validate() error {
	if _, err := model.ParseSliceMode(string(c.DefaultSliceMode)); err != nil {
		return err
	}
	if c.MaxParallelExtractions < 0 {
		return errors.New("maxParallelExtractions must not be negative")
	}
	return nil
}

// LoadConfig は設定ファイルを読み込みます。ファイルがなければ既定値を返します。
func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = Defaults()
			return cfg, nil
		}
		return Config{}, err
	}

	var tempCfg Config
	if err := yaml.Unmarshal(file, &tempCfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	applyDefaults(&tempCfg)
	if err := tempCfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg = tempCfg
	return cfg, nil
}

// SaveConfig は設定を保存します。API キーは既存の値を引き継ぎます。
func SaveConfig(newCfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	applyDefaults(&newCfg)
	if err := newCfg.Validate(); err != nil {
		return err
	}
	if newCfg.GeminiAPIKey == "" {
		newCfg.GeminiAPIKey = cfg.GeminiAPIKey
	}

	file, err := yaml.Marshal(newCfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, file, 0600); err != nil {
		return err
	}
	cfg = newCfg
	return nil
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// APIKey は抽出サービスのキーです。環境変数 GEMINI_API_KEY、API_KEY、設定ファイルの順に探します。
func APIKey(c Config) string {
	for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return c.GeminiAPIKey
}
