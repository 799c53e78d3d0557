// Package zettle is a small REST client for the Zettle OAuth user endpoint
// and the Reader Connect integrator API.
package zettle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
)

const (
	DefaultOAuthURL  = "https://oauth.zettle.com"
	DefaultReaderURL = "https://reader-connect.zettle.com"
)

// APIError is a non-2xx answer from Zettle.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zettle %s: status %d: %s", e.Op, e.Status, e.Body)
}

// HTTPStatus lets the retry classifier spot rate limiting.
func (e *APIError) HTTPStatus() int { return e.Status }

type User struct {
	UUID             string `json:"uuid"`
	OrganizationUUID string `json:"organizationUuid"`
	Email            string `json:"email"`
}

type Link struct {
	LinkID    string `json:"linkId"`
	LinkName  string `json:"linkName"`
	CreatedAt string `json:"createdAt,omitempty"`
	Online    bool   `json:"online,omitempty"`
}

type Client struct {
	oauthURL  string
	readerURL string
	http      *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(z *Client) { z.http = c }
}

func WithBaseURLs(oauthURL, readerURL string) Option {
	return func(z *Client) {
		if oauthURL != "" {
			z.oauthURL = strings.TrimRight(oauthURL, "/")
		}
		if readerURL != "" {
			z.readerURL = strings.TrimRight(readerURL, "/")
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		oauthURL:  DefaultOAuthURL,
		readerURL: DefaultReaderURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Self returns the user behind accessToken.
func (c *Client) Self(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, "users/self", http.MethodGet, c.oauthURL+"/users/self", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// OrganizationID adapts Self to an account resolver.
func (c *Client) OrganizationID(ctx context.Context, accessToken string) (string, error) {
	u, err := c.Self(ctx, accessToken)
	if err != nil {
		return "", err
	}
	return u.OrganizationUUID, nil
}

func (c *Client) ListLinks(ctx context.Context, accessToken string) ([]Link, error) {
	var links []Link
	if err := c.do(ctx, "list links", http.MethodGet, c.linksURL(""), accessToken, nil, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (c *Client) CreateLink(ctx context.Context, accessToken, name string) (*Link, error) {
	var link Link
	body := map[string]string{"linkName": name}
	if err := c.do(ctx, "create link", http.MethodPost, c.linksURL(""), accessToken, body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) DeleteLink(ctx context.Context, accessToken, linkID string) error {
	return c.do(ctx, "delete link", http.MethodDelete, c.linksURL(linkID), accessToken, nil, nil)
}

func (c *Client) linksURL(linkID string) string {
	u := c.readerURL + "/v1/integrator/links"
	if linkID != "" {
		u += "/" + linkID
	}
	return u
}

func (c *Client) do(
	ctx context.Context,
	op string,
	method string,
	url string,
	accessToken string,
	in any,
	out any,
) error {

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return httperr.Wrap(httperr.KindUpstreamTransient, "transport_error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return httperr.Wrap(httperr.KindProtocol, "invalid_provider_response", err)
	}
	return nil
}
