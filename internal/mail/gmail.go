package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/huangsam/mailprune/internal/cache"
	"github.com/huangsam/mailprune/internal/config"
)

// GmailRemote implements Remote using the Gmail API.
type GmailRemote struct {
	service *gmail.Service
	user    string
}

// NewGmailPool builds a pool of Gmail API handles sharing one token source.
// Each handle gets its own service instance because a service is not safe
// to share across concurrent calls.
func NewGmailPool(ctx context.Context, cfg *config.GmailConfig, size int) (*Pool, error) {
	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	user := cfg.UserEmail
	if user == "" {
		user = "me"
	}

	return NewPool(size, func() (Remote, error) {
		service, err := gmail.NewService(ctx, option.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("create Gmail service: %w", err)
		}
		return &GmailRemote{service: service, user: user}, nil
	})
}

// tokenSource resolves credentials in order: a refresh token from the
// configuration, then a token file on disk. Both absent means the user has
// not authenticated yet.
func tokenSource(ctx context.Context, cfg *config.GmailConfig) (oauth2.TokenSource, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	if cfg.RefreshToken != "" {
		token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
		return oauthConfig.TokenSource(ctx, token), nil
	}

	if cfg.TokenFile != "" {
		token, err := tokenFromFile(cfg.TokenFile)
		if err == nil {
			return oauthConfig.TokenSource(ctx, token), nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read token file %s: %w", cfg.TokenFile, err)
		}
	}

	return nil, ErrNoCredentials
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

// List returns one page of message ids matching query.
func (g *GmailRemote) List(ctx context.Context, query, pageToken string, pageSize int64) (ListPage, error) {
	call := g.service.Users.Messages.List(g.user).MaxResults(pageSize).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	response, err := call.Do()
	if err != nil {
		return ListPage{}, fmt.Errorf("list messages: %w", err)
	}

	page := ListPage{NextPageToken: response.NextPageToken}
	for _, m := range response.Messages {
		page.IDs = append(page.IDs, m.Id)
	}
	return page, nil
}

// GetMetadata fetches the metadata record for one message.
func (g *GmailRemote) GetMetadata(ctx context.Context, id string) (*cache.Record, error) {
	msg, err := g.service.Users.Messages.Get(g.user, id).
		Format("metadata").
		MetadataHeaders(MetadataHeaders...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	record := &cache.Record{
		ID:       msg.Id,
		LabelIDs: msg.LabelIds,
		Snippet:  msg.Snippet,
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			record.Headers = append(record.Headers, cache.Header{Name: h.Name, Value: h.Value})
		}
	}
	return record, nil
}

// Close is a no-op; the Gmail API service holds no connection state.
func (g *GmailRemote) Close() error {
	return nil
}
