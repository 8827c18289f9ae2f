package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Credentials selects how the client authenticates. A service account is
// preferred; otherwise an OAuth client plus a saved token (see
// cmd/oauth-init) is used. Inline JSON wins over a file path.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

var ErrNoCredentials = errors.New("missing Google credentials (set a service account or an OAuth client and token)")

// ClientOptions turns the credentials into options for the Sheets service.
func (c Credentials) ClientOptions(ctx context.Context) ([]goption.ClientOption, error) {
	sa, err := inlineOrFile(c.ServiceAccountJSON, c.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if len(sa) > 0 {
		slog.InfoContext(ctx, "Using Google service account credentials", "credentials_size", len(sa))
		return []goption.ClientOption{
			goption.WithCredentialsJSON(sa),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	}

	clientJSON, err := inlineOrFile(c.OAuthClientJSON, c.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	tokenJSON, err := inlineOrFile(c.OAuthTokenJSON, c.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if len(clientJSON) == 0 || len(tokenJSON) == 0 {
		return nil, ErrNoCredentials
	}

	cfg, err := google.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	slog.InfoContext(ctx, "Using Google OAuth user credentials")
	return []goption.ClientOption{
		goption.WithTokenSource(cfg.TokenSource(ctx, &tok)),
	}, nil
}

func inlineOrFile(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if f := strings.TrimSpace(file); f != "" {
		return os.ReadFile(f)
	}
	return nil, nil
}
