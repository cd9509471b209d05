package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// LoadGitHubToken resolves the OAuth token the Copilot backend needs.
// GITHUB_TOKEN wins when set; otherwise the Copilot editor config files
// (hosts.json, then apps.json) under the user's config directory are
// scanned.
func LoadGitHubToken() (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting config directory: %w", err)
	}

	filePaths := []string{
		filepath.Join(configDir, "github-copilot", "hosts.json"),
		filepath.Join(configDir, "github-copilot", "apps.json"),
	}

	for _, filePath := range filePaths {
		token, err := loadTokenFromFile(filePath)
		if err == nil && token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("GitHub token not found: set GITHUB_TOKEN or authenticate with GitHub Copilot in your IDE")
}

// getConfigDir picks the per-user config directory, honoring
// XDG_CONFIG_HOME and the Windows local app-data layout.
func getConfigDir() (string, error) {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return localAppData, nil
		}
		return filepath.Join(home, "AppData", "Local"), nil
	}

	return filepath.Join(home, ".config"), nil
}

// loadTokenFromFile pulls the oauth_token field out of a Copilot editor
// config file, whose top-level keys are host entries.
func loadTokenFromFile(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	var config map[string]map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return "", err
	}

	for key, value := range config {
		if strings.Contains(key, "github.com") {
			if oauthToken, ok := value["oauth_token"].(string); ok {
				return oauthToken, nil
			}
		}
	}

	return "", fmt.Errorf("oauth_token not found in %s", filePath)
}
