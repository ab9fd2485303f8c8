package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
)

// graphProvider talks to a Graph-style drive API: paged children listings
// per folder and a per-item content endpoint, authorized by a bearer token
// obtained from a client-credential exchange.
type graphProvider struct {
	creds  *Credentials
	client *http.Client
	tokens *tokenCache
	token  string
}

func init() {
	Register("graph", createGraphProvider)
}

func createGraphProvider(args ProviderArgs) (Provider, error) {
	if args.Credentials == nil || args.Credentials.BaseURL == "" {
		return nil, fmt.Errorf("graph connector requires base_url")
	}
	client := args.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &graphProvider{
		creds:  args.Credentials,
		client: client,
		tokens: sharedTokenCache,
	}, nil
}

func (g *graphProvider) Name() string {
	return "graph"
}

func (g *graphProvider) EnsureAuth(ctx context.Context) error {
	if g.creds.AccessToken != "" {
		g.token = g.creds.AccessToken
		return nil
	}
	if g.creds.TokenURL == "" || g.creds.ClientID == "" || g.creds.ClientSecret == "" {
		return fmt.Errorf("%w: missing client credentials", appErr.ErrProviderAuth)
	}
	if cached, ok := g.tokens.Get(g.creds.ClientID); ok {
		g.token = cached
		return nil
	}
	token, ttl, err := g.exchange(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrProviderAuth, err)
	}
	g.tokens.Put(g.creds.ClientID, token, ttl)
	g.token = token
	return nil
}

type graphTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (g *graphProvider) exchange(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", g.creds.ClientID)
	form.Set("client_secret", g.creds.ClientSecret)
	if g.creds.Scope != "" {
		form.Set("scope", g.creds.Scope)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.creds.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	var payload graphTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, err
	}
	if payload.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned empty token")
	}
	ttl := time.Duration(payload.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return payload.AccessToken, ttl, nil
}

type graphEntry struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Size                 int64            `json:"size"`
	LastModifiedDateTime string           `json:"lastModifiedDateTime"`
	Folder               *json.RawMessage `json:"folder,omitempty"`
	ParentReference      struct {
		Path string `json:"path"`
	} `json:"parentReference"`
}

type graphChildrenResponse struct {
	Value    []graphEntry `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

func (g *graphProvider) ListChildren(ctx context.Context, folderID string) ([]Entry, error) {
	if folderID == "" {
		folderID = "root"
	}
	next := fmt.Sprintf("%s/items/%s/children", strings.TrimSuffix(g.creds.BaseURL, "/"), url.PathEscape(folderID))
	entries := make([]Entry, 0)
	for next != "" {
		var page graphChildrenResponse
		if err := g.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Value {
			entries = append(entries, Entry{
				ID:         item.ID,
				Name:       item.Name,
				Path:       strings.TrimSuffix(item.ParentReference.Path, "/") + "/" + item.Name,
				IsFolder:   item.Folder != nil,
				Size:       item.Size,
				ModifiedAt: parseGraphTime(item.LastModifiedDateTime),
			})
		}
		next = page.NextLink
	}
	return entries, nil
}

func (g *graphProvider) DownloadContent(ctx context.Context, itemID string) (*Content, error) {
	target := fmt.Sprintf("%s/items/%s/content", strings.TrimSuffix(g.creds.BaseURL, "/"), url.PathEscape(itemID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, appErr.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content endpoint returned %d for item %s", resp.StatusCode, itemID)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Content{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		ModifiedAt:  parseGraphTime(resp.Header.Get("Last-Modified")),
	}, nil
}

func (g *graphProvider) getJSON(ctx context.Context, target string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: listing returned %d", appErr.ErrProviderAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listing returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func parseGraphTime(value string) int64 {
	if value == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339, time.RFC1123} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Unix()
		}
	}
	return 0
}
