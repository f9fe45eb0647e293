package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Files    FilesConfig    `yaml:"files"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Phone    PhoneConfig    `yaml:"phone"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type BrowserConfig struct {
	Headless         bool   `yaml:"headless"`
	UserDataDir      string `yaml:"user_data_dir"`
	ChromePath       string `yaml:"chrome_path"`
	QRTimeoutSeconds int    `yaml:"qr_timeout_seconds"`
	PageLoadSeconds  int    `yaml:"page_load_seconds"`
}

type FilesConfig struct {
	ContactsPath string   `yaml:"contacts_path"`
	TemplatePath string   `yaml:"template_path"`
	ImagePaths   []string `yaml:"image_paths"`
	PDFPaths     []string `yaml:"pdf_paths"`
	SentLogPath  string   `yaml:"sent_log_path"`
}

type DeliveryConfig struct {
	ContactDelaySeconds int `yaml:"contact_delay_seconds"`
	OpenChatAttempts    int `yaml:"open_chat_attempts"`
	PausePollMillis     int `yaml:"pause_poll_millis"`
}

type PhoneConfig struct {
	CountryCode string `yaml:"country_code"`
	LocalDigits int    `yaml:"local_digits"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
}

// LoadConfig reads the YAML config, applies defaults, then lets the
// environment (optionally seeded from a .env file) override the
// deploy-sensitive keys.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	_ = godotenv.Load()

	config.Browser.ChromePath = getEnv("WA_CHROME_PATH", config.Browser.ChromePath)
	config.Browser.UserDataDir = getEnv("WA_USER_DATA_DIR", config.Browser.UserDataDir)
	config.Browser.Headless = getEnvBool("WA_HEADLESS", config.Browser.Headless)
	config.Phone.CountryCode = getEnv("WA_COUNTRY_CODE", config.Phone.CountryCode)

	if config.Browser.ChromePath == "" {
		config.Browser.ChromePath = findChromePath()
	}
	if config.Browser.QRTimeoutSeconds == 0 {
		config.Browser.QRTimeoutSeconds = 120
	}
	if config.Browser.PageLoadSeconds == 0 {
		config.Browser.PageLoadSeconds = 20
	}
	if config.Delivery.ContactDelaySeconds == 0 {
		config.Delivery.ContactDelaySeconds = 5
	}
	if config.Delivery.OpenChatAttempts == 0 {
		config.Delivery.OpenChatAttempts = 3
	}
	if config.Delivery.PausePollMillis == 0 {
		config.Delivery.PausePollMillis = 500
	}
	if config.Phone.CountryCode == "" {
		config.Phone.CountryCode = "51"
	}
	if config.Phone.LocalDigits == 0 {
		config.Phone.LocalDigits = 9
	}
	if config.Files.SentLogPath == "" {
		config.Files.SentLogPath = "sent.csv"
	}

	// A persistent user data dir must be absolute for Chrome; empty means
	// a throwaway temp profile per session.
	if config.Browser.UserDataDir != "" {
		absPath, err := filepath.Abs(config.Browser.UserDataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user data directory path: %w", err)
		}
		config.Browser.UserDataDir = absPath
	}

	return &config, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// findChromePath attempts to locate the Chrome executable on the system.
func findChromePath() string {
	if runtime.GOOS == "windows" {
		paths := []string{
			"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
			"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe",
			os.Getenv("LOCALAPPDATA") + "\\Google\\Chrome\\Application\\chrome.exe",
		}
		for _, path := range paths {
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	// Empty string lets chromedp use its own lookup.
	return ""
}
