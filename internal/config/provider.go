package config

import "os"

// Settings understood by the provider client.
const (
	SettingAPIToken = "api_token"
	SettingBaseURL  = "base_url"
)

// ProviderConfig holds provider-specific connection settings such as a
// custom API base URL or request timeout.
type ProviderConfig struct {
	Settings map[string]string `yaml:"settings"`
}

func (p *ProviderConfig) expandEnv() {
	for k, v := range p.Settings {
		p.Settings[k] = os.ExpandEnv(v)
	}
}

// ProviderSettings returns the provider settings with the top-level token
// filled in as the API token unless the settings already carry one.
func (c *Config) ProviderSettings() map[string]string {
	settings := make(map[string]string, len(c.Provider.Settings)+1)
	for k, v := range c.Provider.Settings {
		settings[k] = v
	}
	if settings[SettingAPIToken] == "" {
		settings[SettingAPIToken] = c.Token
	}
	return settings
}
