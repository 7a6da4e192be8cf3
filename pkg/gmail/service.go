// Package gmail implements the Gmail API mail source and the OAuth
// consent flow helpers.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	maildomain "mailvault/internal/mail/domain"
)

// ReadScope is the only scope requested: the archive never mutates the
// remote mailbox.
const ReadScope = "https://www.googleapis.com/auth/gmail.readonly"

// TokenUpdateFunc persists a refreshed token pair.
type TokenUpdateFunc func(token *oauth2.Token) error

type Service struct {
	clientID     string
	clientSecret string
	redirectURI  string
}

func NewService(clientID, clientSecret, redirectURI string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
	}
}

func (s *Service) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		RedirectURL:  s.redirectURI,
		Scopes:       []string{ReadScope},
		Endpoint:     google.Endpoint,
	}
}

// AuthCodeURL builds the consent URL. Offline access with forced consent
// so a refresh token is always issued.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a token pair.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", maildomain.ErrAuthFailure, err)
	}
	return token, nil
}

// Profile returns the authenticated user's email address.
func (s *Service) Profile(ctx context.Context, token *oauth2.Token) (string, error) {
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return "", fmt.Errorf("unable to create Gmail service: %v", err)
	}
	profile, err := srv.Users.GetProfile("me").Do()
	if err != nil {
		return "", classify(err, "get profile")
	}
	return profile.EmailAddress, nil
}

// notifyTokenSource wraps an oauth2 token source and invokes a callback
// whenever the access token changes, so refreshed tokens are persisted.
type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// Source fetches recent messages through the Gmail API for one account.
// It implements domain.MailSource.
type Source struct {
	service   *Service
	token     *oauth2.Token
	onRefresh TokenUpdateFunc
}

// NewSource binds stored credentials to a fetchable source. An expired
// access token is refreshed transparently; the refreshed pair is handed
// to onRefresh.
func (s *Service) NewSource(accessToken, refreshToken string, expiry time.Time, onRefresh TokenUpdateFunc) *Source {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
	return &Source{service: s, token: token, onRefresh: onRefresh}
}

// FetchNew lists up to max recent message ids and downloads full payloads.
func (g *Source) FetchNew(ctx context.Context, max int) ([]maildomain.RawMessage, error) {
	tokenSource := g.service.oauthConfig().TokenSource(ctx, g.token)
	wrapped := &notifyTokenSource{src: tokenSource, current: g.token, callback: g.onRefresh}

	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(wrapped))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	listResp, err := srv.Users.Messages.List("me").MaxResults(int64(max)).Do()
	if err != nil {
		return nil, classify(err, "list messages")
	}

	fetched := make([]maildomain.RawMessage, 0, len(listResp.Messages))
	for _, m := range listResp.Messages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", maildomain.ErrAdapterUnavailable, err)
		}
		full, err := srv.Users.Messages.Get("me", m.Id).Format("full").Do()
		if err != nil {
			log.Printf("[Gmail] skipping message %s: %v", m.Id, err)
			continue
		}
		fetched = append(fetched, convertMessage(full))
	}

	return fetched, nil
}

// classify maps Gmail API errors onto the sync error taxonomy so a revoked
// token surfaces as "reauth required" rather than a generic failure.
func classify(err error, op string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		return fmt.Errorf("%w: %s: %v", maildomain.ErrAuthFailure, op, err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: token refresh: %v", maildomain.ErrAuthFailure, err)
	}
	return fmt.Errorf("%w: %s: %v", maildomain.ErrAdapterUnavailable, op, err)
}

func convertMessage(msg *gmailapi.Message) maildomain.RawMessage {
	raw := maildomain.RawMessage{
		ExternalID: msg.Id,
		MessageID:  getHeader(msg.Payload.Headers, "Message-ID"),
		Subject:    getHeader(msg.Payload.Headers, "Subject"),
		From:       getHeader(msg.Payload.Headers, "From"),
	}

	if to := getHeader(msg.Payload.Headers, "To"); to != "" {
		for _, addr := range strings.Split(to, ",") {
			raw.To = append(raw.To, strings.TrimSpace(addr))
		}
	}

	raw.Date = messageDate(msg)
	raw.BodyPlain, raw.BodyHTML = extractBodies(msg.Payload)
	return raw
}

// messageDate prefers the Date header, falls back to the provider's
// internal timestamp, then to fetch time.
func messageDate(msg *gmailapi.Message) time.Time {
	if hdr := getHeader(msg.Payload.Headers, "Date"); hdr != "" {
		if t, err := mail.ParseDate(hdr); err == nil {
			return t.UTC()
		}
	}
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate).UTC()
	}
	return time.Now().UTC()
}

func getHeader(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// extractBodies walks the payload tree for the first text/plain and
// text/html parts.
func extractBodies(payload *gmailapi.MessagePart) (plain, html string) {
	if payload == nil {
		return "", ""
	}

	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			if payload.MimeType == "text/html" {
				return "", string(data)
			}
			return string(data), ""
		}
	}

	var walk func(parts []*gmailapi.MessagePart)
	walk = func(parts []*gmailapi.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil {
					switch part.MimeType {
					case "text/plain":
						if plain == "" {
							plain = string(data)
						}
					case "text/html":
						if html == "" {
							html = string(data)
						}
					}
				}
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)
	return plain, html
}
