// Package gmail implements out.MailSource on the Gmail API with an installed-app OAuth token.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"carma_server/core/domain"
	"carma_server/core/port/out"
	"carma_server/pkg/apperr"
	"carma_server/pkg/httputil"
	"carma_server/pkg/logger"
)

const user = "me"

// ErrNotAuthorized is returned when no usable token file exists.
var ErrNotAuthorized = errors.New("gmail: token not found, authorize the installed app first")

type Config struct {
	CredentialsFile string
	TokenFile       string
	Timeout         time.Duration
}

// Adapter implements out.MailSource for Gmail.
type Adapter struct {
	cfg        Config
	cb         *gobreaker.CircuitBreaker
	httpClient *http.Client
	log        *logger.Logger
}

var _ out.MailSource = (*Adapter)(nil)

func New(cfg Config) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	log := logger.WithField("component", "gmail")

	settings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}

	return &Adapter{
		cfg:        cfg,
		cb:         gobreaker.NewCircuitBreaker(settings),
		httpClient: httputil.NewClient(httputil.GmailClientConfig()),
		log:        log,
	}
}

// =============================================================================
// MailSource
// =============================================================================

// FetchRecent lists the newest messages and loads each in full format.
func (a *Adapter) FetchRecent(ctx context.Context, maxCount int) ([]domain.Message, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	var list *gmail.ListMessagesResponse
	err = a.execute("ListMessages", func() error {
		var apiErr error
		list, apiErr = svc.Users.Messages.List(user).MaxResults(int64(maxCount)).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, wrapError(err, "failed to list messages")
	}

	msgs := make([]domain.Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		var full *gmail.Message
		err := a.execute("GetMessage", func() error {
			var apiErr error
			full, apiErr = svc.Users.Messages.Get(user, ref.Id).Format("full").Context(ctx).Do()
			return apiErr
		})
		if err != nil {
			return nil, wrapError(err, "failed to get message "+ref.Id)
		}
		msgs = append(msgs, convertMessage(full))
	}
	return msgs, nil
}

// FetchAttachments downloads every attachment part of a message.
func (a *Adapter) FetchAttachments(ctx context.Context, messageID string) ([]domain.Attachment, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	var msg *gmail.Message
	err = a.execute("GetMessage", func() error {
		var apiErr error
		msg, apiErr = svc.Users.Messages.Get(user, messageID).Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, wrapError(err, "failed to get message "+messageID)
	}

	var atts []domain.Attachment
	for _, part := range attachmentParts(msg.Payload) {
		var body *gmail.MessagePartBody
		err := a.execute("GetAttachment", func() error {
			var apiErr error
			body, apiErr = svc.Users.Messages.Attachments.Get(user, messageID, part.Body.AttachmentId).Context(ctx).Do()
			return apiErr
		})
		if err != nil {
			return atts, wrapError(err, "failed to get attachment "+part.Filename)
		}

		data, err := decode(body.Data)
		if err != nil {
			return atts, fmt.Errorf("failed to decode attachment %s: %w", part.Filename, err)
		}
		atts = append(atts, domain.Attachment{Filename: part.Filename, MimeType: part.MimeType, Data: data})
	}
	return atts, nil
}

// =============================================================================
// Auth
// =============================================================================

func (a *Adapter) service(ctx context.Context) (*gmail.Service, error) {
	secret, err := os.ReadFile(a.cfg.CredentialsFile)
	if err != nil {
		return nil, apperr.SourceUnavailable("gmail", fmt.Errorf("read credentials: %w", err))
	}
	conf, err := google.ConfigFromJSON(secret, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, apperr.SourceUnavailable("gmail", fmt.Errorf("parse credentials: %w", err))
	}

	tok, err := loadToken(a.cfg.TokenFile)
	if err != nil {
		return nil, apperr.SourceUnavailable("gmail", err)
	}

	// Refreshes use a background context on the pooled client.
	base := context.WithValue(context.Background(), oauth2.HTTPClient, a.httpClient)
	src := &savingTokenSource{
		base: conf.TokenSource(base, tok),
		path: a.cfg.TokenFile,
		last: tok.AccessToken,
		log:  a.log,
	}

	client := oauth2.NewClient(base, oauth2.ReuseTokenSource(tok, src))
	return gmail.NewService(ctx, option.WithHTTPClient(client))
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.cfg.Timeout)
}

// storedToken accepts both the oauth2.Token layout and the authorized-user layout
// written by Google's Python client ("token", "expiry").
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	Token        string    `json:"token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

func loadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotAuthorized
		}
		return nil, fmt.Errorf("read token: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	tok := &oauth2.Token{
		AccessToken:  st.AccessToken,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
		Expiry:       st.Expiry,
	}
	if tok.AccessToken == "" {
		tok.AccessToken = st.Token
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNotAuthorized
	}
	return tok, nil
}

// savingTokenSource writes refreshed tokens back to the token file.
type savingTokenSource struct {
	base oauth2.TokenSource
	path string
	last string
	log  *logger.Logger
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if b, err := json.MarshalIndent(tok, "", "  "); err == nil {
			if err := os.WriteFile(s.path, b, 0o600); err != nil {
				s.log.WithError(err).Warn("failed to persist refreshed token")
			}
		}
	}
	return tok, nil
}

// =============================================================================
// Circuit breaker
// =============================================================================

func (a *Adapter) execute(operation string, fn func() error) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				switch apiErr.Code {
				case 400, 401, 403, 404:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}
	if err != nil {
		a.log.WithError(err).Warn("%s failed: breaker=%s", operation, a.cb.State().String())
	}
	return err
}

// nonCircuitError wraps client errors so they do not trip the breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func wrapError(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return apperr.NotFound(msg)
	}
	return apperr.SourceUnavailable("gmail", fmt.Errorf("%s: %w", msg, err))
}

// =============================================================================
// Conversion
// =============================================================================

func convertMessage(msg *gmail.Message) domain.Message {
	m := domain.Message{ID: msg.Id, Snippet: msg.Snippet}
	if msg.Payload == nil {
		return m
	}

	m.Subject = header(msg.Payload.Headers, "Subject")
	m.From = header(msg.Payload.Headers, "From")
	m.To = header(msg.Payload.Headers, "To")
	m.Date = header(msg.Payload.Headers, "Date")

	var html, plain string
	extractBody(msg.Payload, &html, &plain)
	if html != "" {
		m.Body = html
	} else {
		m.Body = plain
	}
	return m
}

// extractBody keeps the first text/html and text/plain parts found depth-first.
func extractBody(part *gmail.MessagePart, html, plain *string) {
	if part == nil {
		return
	}
	if part.Body != nil && part.Body.Data != "" && part.Filename == "" {
		if data, err := decode(part.Body.Data); err == nil {
			switch {
			case strings.HasPrefix(part.MimeType, "text/html") && *html == "":
				*html = string(data)
			case strings.HasPrefix(part.MimeType, "text/plain") && *plain == "":
				*plain = string(data)
			case len(part.Parts) == 0 && *plain == "" && *html == "":
				*plain = string(data)
			}
		}
	}
	for _, p := range part.Parts {
		extractBody(p, html, plain)
	}
}

func attachmentParts(part *gmail.MessagePart) []*gmail.MessagePart {
	if part == nil {
		return nil
	}
	var parts []*gmail.MessagePart
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		parts = append(parts, part)
	}
	for _, p := range part.Parts {
		parts = append(parts, attachmentParts(p)...)
	}
	return parts
}

func header(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// decode handles Gmail's URL-safe base64 with or without padding.
func decode(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
