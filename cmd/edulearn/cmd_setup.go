package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edulearn/edulearn/internal/config"
)

// cmdInit writes the default config and stores credentials
func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	token := fs.String("token", "", "backend bearer token")
	geminiKey := fs.String("gemini-key", "", "Gemini API key")
	openaiKey := fs.String("openai-key", "", "OpenAI API key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dataDir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("setup data directory: %w", err)
	}

	configPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s\n", configPath)
	} else {
		fmt.Printf("✓ Config exists at %s\n", configPath)
	}

	keys := make(map[string]string)
	if *geminiKey != "" {
		keys["gemini"] = *geminiKey
	}
	if *openaiKey != "" {
		keys["openai"] = *openaiKey
	}

	if *token == "" && len(keys) == 0 {
		fmt.Println("No credentials given. Run 'edulearn init -token <token>' to connect to the backend.")
		return nil
	}

	// Keep credentials that were not given this time
	if existing, err := config.LoadLocalConfigFrom(dataDir); err == nil {
		if *token == "" {
			*token = existing.Backend.Token
		}
		for name, provider := range existing.Generator.Providers {
			if _, given := keys[name]; !given && provider != nil && provider.APIKey != "" {
				keys[name] = provider.APIKey
			}
		}
	}

	if err := config.SaveSecrets(*token, keys); err != nil {
		return err
	}
	fmt.Printf("✓ Saved credentials to %s\n", filepath.Join(dataDir, "secrets.yaml"))
	return nil
}
