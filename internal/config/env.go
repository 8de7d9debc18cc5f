package config

import (
	"os"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads KEY=VALUE files so credentials can stay out of the YAML.
// Variables already present in the process environment are not overridden.
// It returns the files that were loaded.
func loadEnvFiles() []string {
	var loaded []string
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err == nil {
			loaded = append(loaded, name)
		}
	}
	return loaded
}
