package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/exchangetower/tower/internal/model"
)

// Credentials is one mode's API key pair, sourced from the environment.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Environment variable names per mode.
const (
	EnvPaperKey    = "ALPACA_PAPER_API_KEY"
	EnvPaperSecret = "ALPACA_PAPER_API_SECRET"
	EnvLiveKey     = "ALPACA_LIVE_API_KEY"
	EnvLiveSecret  = "ALPACA_LIVE_API_SECRET"
)

// LoadCredentials reads the per-mode key pairs from the environment, after
// loading envFile if it exists. Variables already set in the environment win
// over the file. A mode with no key pair at all is simply absent from the
// result; a half-set pair is an error.
func LoadCredentials(envFile string) (map[model.Mode]Credentials, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, errors.Wrapf(err, "load env file %s", envFile)
			}
		}
	}

	creds := make(map[model.Mode]Credentials)
	pairs := []struct {
		mode      model.Mode
		keyVar    string
		secretVar string
	}{
		{model.ModePaper, EnvPaperKey, EnvPaperSecret},
		{model.ModeLive, EnvLiveKey, EnvLiveSecret},
	}
	for _, p := range pairs {
		key, secret := os.Getenv(p.keyVar), os.Getenv(p.secretVar)
		if key == "" && secret == "" {
			continue
		}
		if key == "" || secret == "" {
			return nil, errors.Newf("%s mode credentials incomplete: both %s and %s are required",
				p.mode, p.keyVar, p.secretVar)
		}
		creds[p.mode] = Credentials{APIKey: key, APISecret: secret}
	}
	return creds, nil
}
