package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; godotenv never overrides a variable that is already set,
// so earlier files win over later ones and the real environment wins over all of them.
var envFiles = []string{
	".env.local",
	".env",
}

// loadEnvFiles loads .env files from the working directory and ~/.feedbackd
func loadEnvFiles() {
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".feedbackd", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// GetString returns string value or default
func GetString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
