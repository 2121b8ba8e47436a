package service

import (
	"fmt"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/config"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/output"
)

// secretKeys are masked when shown
var secretKeys = map[string]bool{
	"backend.anon_key": true,
	"s3.access_key":    true,
	"s3.secret_key":    true,
}

// ConfigService shows and edits the CLI configuration
type ConfigService struct{}

// NewConfigService creates a new config service
func NewConfigService() *ConfigService {
	return &ConfigService{}
}

func configValue(key string) string {
	v := fmt.Sprint(config.Get(key))
	if secretKeys[key] && v != "" {
		if len(v) > 4 {
			return "****" + v[len(v)-4:]
		}
		return "****"
	}
	return v
}

// Show prints every setting, or just the one named by key
func (cs *ConfigService) Show(key string) error {
	keys := config.Keys()
	if key != "" {
		key = strings.ToLower(key)
		if config.Get(key) == nil {
			return clierrors.ValidationError("key", fmt.Sprintf("unknown setting %q", key)).
				WithSuggestion("Run 'socialhub config show' to list settings")
		}
		keys = []string{key}
	}

	values := make(map[string]string, len(keys))
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		values[k] = configValue(k)
		rows = append(rows, []string{k, values[k]})
	}

	if output.IsJSON() {
		return output.Print("", values)
	}
	if key != "" {
		formatter.Printf("%s\n", values[key])
		return nil
	}
	if err := output.PrintList("⚙️  Configuration", values, []string{"Key", "Value"}, rows); err != nil {
		return err
	}
	formatter.Muted.Fprintf(output.Writer, "\nConfig file: %s\n", config.GetConfigFilePath())
	return nil
}

// Set changes a known setting and writes the config file
func (cs *ConfigService) Set(key, value string) error {
	key = strings.ToLower(key)
	if config.Get(key) == nil {
		return clierrors.ValidationError("key", fmt.Sprintf("unknown setting %q", key)).
			WithSuggestion("Run 'socialhub config show' to list settings")
	}
	if err := config.SetString(key, value); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	formatter.PrintSuccess("✓ %s = %s", key, configValue(key))
	return nil
}

// Path prints the config file location
func (cs *ConfigService) Path() error {
	formatter.Printf("%s\n", config.GetConfigFilePath())
	return nil
}
