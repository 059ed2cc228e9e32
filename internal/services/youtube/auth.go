package youtube

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"cvcutter/internal/services"
)

// AuthPrompt asks the operator to visit the consent URL and returns the
// authorization code they were given.
type AuthPrompt func(authURL string) (code string, err error)

// TokenSource returns an auto-refreshing token source for the upload scope.
// The token cached at tokenPath is used when present; otherwise the
// installed-app consent flow runs through prompt and the resulting token is
// cached for the next run.
func TokenSource(ctx context.Context, secretsPath, tokenPath string, prompt AuthPrompt) (oauth2.TokenSource, error) {
	secrets, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "read client secrets", secretsPath, err)
	}
	oauthCfg, err := google.ConfigFromJSON(secrets, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "parse client secrets", secretsPath, err)
	}

	token, err := loadToken(tokenPath)
	if err != nil {
		if prompt == nil {
			return nil, services.Wrap(services.ErrConfiguration, "upload", "load token",
				"no cached token and no way to prompt for consent", err)
		}
		authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
		code, err := prompt(authURL)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "upload", "authorize", "consent flow aborted", err)
		}
		token, err = oauthCfg.Exchange(ctx, code)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "upload", "authorize", "code exchange failed", err)
		}
		if err := saveToken(tokenPath, token); err != nil {
			return nil, err
		}
	}

	return oauthCfg.TokenSource(ctx, token), nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "upload", "encode token", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return services.Wrap(services.ErrConfiguration, "upload", "create token directory", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return services.Wrap(services.ErrConfiguration, "upload", "write token", path, err)
	}
	return nil
}
