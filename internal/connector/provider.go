// Package connector lists and downloads files from remote file stores on
// behalf of the sync engine. Providers register by name, mirroring how the
// object-store backends are selected.
package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Entry struct {
	ID         string
	Name       string
	Path       string
	IsFolder   bool
	Size       int64
	ModifiedAt int64
}

type Content struct {
	Data        []byte
	ContentType string
	ModifiedAt  int64
}

// Credentials is the stored per-account credential blob. A supplied
// AccessToken short-circuits the client-credential exchange.
type Credentials struct {
	AccessToken  string `json:"access_token,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Scope        string `json:"scope,omitempty"`
	BaseURL      string `json:"base_url,omitempty"`

	Endpoint  string `json:"endpoint,omitempty"`
	Region    string `json:"region,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	SecretID  string `json:"secret_id,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
	UseSSL    bool   `json:"use_ssl,omitempty"`
}

func ParseCredentials(raw string) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("decode connector credentials: %w", err)
	}
	return &creds, nil
}

type Provider interface {
	Name() string
	// EnsureAuth acquires remote access up front. A failure here is fatal to
	// the whole sync job, before any item is touched.
	EnsureAuth(ctx context.Context) error
	ListChildren(ctx context.Context, folderID string) ([]Entry, error)
	DownloadContent(ctx context.Context, itemID string) (*Content, error)
}

type ProviderArgs struct {
	Credentials *Credentials
	RootFolder  string
	Client      *http.Client
}

type Factory func(args ProviderArgs) (Provider, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args ProviderArgs) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("connector provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported connector provider: %s", name)
	}
	return factory(args)
}
