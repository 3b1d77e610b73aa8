package drive

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	defaultBaseURL  = "https://www.googleapis.com/drive/v3"

	// readScope is all the gallery needs; the account never writes.
	readScope = "https://www.googleapis.com/auth/drive.readonly"

	FolderMimeType = "application/vnd.google-apps.folder"
)

type Config struct {
	ServiceAccountEmail string
	PrivateKeyPEM       string

	// TokenURL and BaseURL are overridable for tests.
	TokenURL string
	BaseURL  string
}

// File is the subset of Drive file metadata the gallery uses. Size comes
// back as a decimal string, per the Drive v3 wire format.
type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         string `json:"size,omitempty"`
	CreatedTime  string `json:"createdTime,omitempty"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
}

func (f *File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

func (f *File) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

func (f *File) IsVideo() bool {
	return strings.HasPrefix(f.MimeType, "video/")
}

// Client is a minimal Drive v3 reader authenticated as a service account.
// The OAuth access token is cached under a mutex and refreshed lazily
// shortly before it expires.
type Client struct {
	// baseURL is the Drive v3 API root.
	baseURL string

	// tokenURL is the OAuth token exchange endpoint.
	tokenURL string

	// email is the service account identity asserted in the JWT grant.
	email string

	// key signs the service account assertion.
	key *rsa.PrivateKey

	// mu guards the cached access token.
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	// hc is the http client.
	hc *http.Client
}

func NewClient(cfg *Config) (*Client, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("drive: parse service account key: %w", err)
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tokenURL: tokenURL,
		email:    cfg.ServiceAccountEmail,
		key:      key,
		hc: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// token returns a valid access token, refreshing it when the cached one is
// within a minute of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	now := time.Now()
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   c.email,
		"scope": readScope,
		"aud":   c.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("token: sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("token: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("token: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token: status %d", resp.StatusCode)
	}

	var reply struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("token: json.Decode: %w", err)
	}
	if reply.AccessToken == "" {
		return "", fmt.Errorf("token: empty access_token in reply")
	}

	c.accessToken = reply.AccessToken
	c.tokenExpiry = now.Add(time.Duration(reply.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// ListFiles runs one files.list call with the given Drive query.
func (c *Client) ListFiles(ctx context.Context, query, orderBy string, pageSize int) ([]File, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"q":        {query},
		"fields":   {"files(id,name,mimeType,size,createdTime,modifiedTime)"},
		"pageSize": {fmt.Sprintf("%d", pageSize)},
	}
	if orderBy != "" {
		params.Set("orderBy", orderBy)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("listFiles: http.NewReq: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listFiles: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listFiles: status %d", resp.StatusCode)
	}

	var reply struct {
		Files []File `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("listFiles: json.Decode: %w", err)
	}
	return reply.Files, nil
}

// GetFile fetches metadata for one file or folder.
func (c *Client) GetFile(ctx context.Context, id string) (*File, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"fields": {"id,name,mimeType,size,createdTime,modifiedTime"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/"+url.PathEscape(id)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("getFile: http.NewReq: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getFile: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getFile: status %d", resp.StatusCode)
	}

	file := &File{}
	if err := json.NewDecoder(resp.Body).Decode(file); err != nil {
		return nil, fmt.Errorf("getFile: json.Decode: %w", err)
	}
	return file, nil
}

// FindFolder looks up a folder by exact name, optionally under a parent.
// Returns nil when no folder matches.
func (c *Client) FindFolder(ctx context.Context, name, parentID string) (*File, error) {
	query := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", FolderMimeType, escapeQueryValue(name))
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQueryValue(parentID))
	}

	folders, err := c.ListFiles(ctx, query, "", 1)
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, nil
	}
	return &folders[0], nil
}

// ListChildFolders returns the folders directly under a parent.
func (c *Client) ListChildFolders(ctx context.Context, parentID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false", escapeQueryValue(parentID), FolderMimeType)
	return c.ListFiles(ctx, query, "name", 100)
}

// ListMedia returns the images and videos directly under a folder, newest
// first.
func (c *Client) ListMedia(ctx context.Context, parentID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and (mimeType contains 'image/' or mimeType contains 'video/') and trashed=false", escapeQueryValue(parentID))
	return c.ListFiles(ctx, query, "createdTime desc", 100)
}

// ListImages returns only the images directly under a folder, newest first.
func (c *Client) ListImages(ctx context.Context, parentID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed=false", escapeQueryValue(parentID))
	return c.ListFiles(ctx, query, "createdTime desc", 100)
}

// escapeQueryValue escapes single quotes for embedding in a Drive q clause.
func escapeQueryValue(v string) string {
	return strings.ReplaceAll(v, `'`, `\'`)
}
