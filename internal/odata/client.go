// Package odata talks to the SAP Gateway OData v2 service that owns the
// planned and production orders.
package odata

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	FormatAtom = "atom"
	FormatJSON = "json"
)

const (
	nsAtom     = "http://www.w3.org/2005/Atom"
	nsMetadata = "http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"
	nsData     = "http://schemas.microsoft.com/ado/2007/08/dataservices"
)

type Client struct {
	serviceURL string
	format     string
	timeout    time.Duration
	transport  http.RoundTripper
}

// NewClient returns a client for the service rooted at serviceURL. format
// selects the representation collections are requested in (FormatAtom or
// FormatJSON).
func NewClient(serviceURL, format string, timeout time.Duration) *Client {
	if serviceURL != "" && !strings.HasSuffix(serviceURL, "/") {
		serviceURL += "/"
	}
	if format != FormatJSON {
		format = FormatAtom
	}
	return &Client{
		serviceURL: serviceURL,
		format:     format,
		timeout:    timeout,
		transport:  http.DefaultTransport,
	}
}

// Available reports whether a backend service is configured at all.
func (c *Client) Available() bool {
	return c != nil && c.serviceURL != ""
}

func (c *Client) httpClient(sess *Session) *http.Client {
	return &http.Client{
		Timeout:   c.timeout,
		Transport: c.transport,
		Jar:       sess.cookies(),
	}
}

// Token returns the session's CSRF token, fetching one if none is cached.
func (c *Client) Token(ctx context.Context, sess *Session) (string, error) {
	if token := sess.cachedToken(); token != "" {
		return token, nil
	}
	return c.FetchToken(ctx, sess)
}

// FetchToken asks the service root for a fresh CSRF token and stores it in
// the session. Cookies SAP sets alongside it land in the session jar.
func (c *Client) FetchToken(ctx context.Context, sess *Session) (string, error) {
	if !c.Available() {
		return "", ErrServiceUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serviceURL+"?$format=xml", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("X-CSRF-Token", "Fetch")
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient(sess).Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch csrf token: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token fetch failed with status: %d", resp.StatusCode)
	}

	token := resp.Header.Get("X-CSRF-Token")
	if token == "" {
		return "", ErrNoToken
	}
	sess.setToken(token)
	slog.Debug("csrf token fetched")
	return token, nil
}

// Login posts the credentials to LoginSet and returns the user ID the
// backend reports. A stale CSRF token is refreshed once.
func (c *Client) Login(ctx context.Context, sess *Session, user, password string) (string, error) {
	if !c.Available() {
		return "", ErrServiceUnavailable
	}

	token, err := c.Token(ctx, sess)
	if err != nil {
		return "", err
	}

	resp, err := c.postLogin(ctx, sess, token, user, password)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusForbidden && strings.EqualFold(resp.Header.Get("X-CSRF-Token"), "Required") {
		resp.Body.Close()
		slog.Info("csrf token rejected, refetching")
		sess.InvalidateToken()
		if token, err = c.FetchToken(ctx, sess); err != nil {
			return "", err
		}
		if resp, err = c.postLogin(ctx, sess, token, user, password); err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &LoginError{StatusCode: resp.StatusCode, Message: loginMessage(body)}
	}

	entry, err := decodeAtomEntry(bytes.NewReader(body))
	if err != nil {
		slog.Warn("unreadable login response, using entered user", "error", err)
		return user, nil
	}
	if id := entry["Userid"]; id != "" {
		return id, nil
	}
	return user, nil
}

func (c *Client) postLogin(ctx context.Context, sess *Session, token, user, password string) (*http.Response, error) {
	payload, err := loginPayload(user, password)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+"LoginSet", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/atom+xml")
	req.Header.Set("Accept", "application/atom+xml")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-CSRF-Token", token)

	resp, err := c.httpClient(sess).Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func loginPayload(user, password string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	fmt.Fprintf(&buf, `<entry xmlns="%s" xmlns:m="%s" xmlns:d="%s">`, nsAtom, nsMetadata, nsData)
	buf.WriteString(`<content type="application/xml"><m:properties><d:Userid>`)
	if err := xml.EscapeText(&buf, []byte(user)); err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	buf.WriteString(`</d:Userid><d:Password>`)
	if err := xml.EscapeText(&buf, []byte(password)); err != nil {
		return nil, fmt.Errorf("encode password: %w", err)
	}
	buf.WriteString(`</d:Password></m:properties></content></entry>`)
	return buf.Bytes(), nil
}

// ReadCollection reads every entity of entitySet, optionally narrowed by an
// OData $filter expression.
func (c *Client) ReadCollection(ctx context.Context, sess *Session, entitySet, filter string) ([]map[string]string, error) {
	if !c.Available() {
		return nil, ErrServiceUnavailable
	}

	q := url.Values{}
	if filter != "" {
		q.Set("$filter", filter)
	}
	accept := "application/atom+xml"
	if c.format == FormatJSON {
		q.Set("$format", "json")
		accept = "application/json"
	}
	target := c.serviceURL + entitySet
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{EntitySet: entitySet, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient(sess).Do(req)
	if err != nil {
		return nil, &FetchError{EntitySet: entitySet, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{EntitySet: entitySet, StatusCode: resp.StatusCode}
	}

	var records []map[string]string
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		records, err = decodeJSON(resp.Body)
	} else {
		records, err = decodeAtomFeed(resp.Body)
	}
	if err != nil {
		return nil, &FetchError{EntitySet: entitySet, StatusCode: resp.StatusCode, Err: err}
	}
	return records, nil
}

const filterLayout = "2006-01-02T15:04:05"

// DateRangeFilter renders field ge start and field lt end as an OData v2
// $filter expression. Times are written in their own location.
func DateRangeFilter(field string, start, end time.Time) string {
	return fmt.Sprintf("%s ge datetime'%s' and %s lt datetime'%s'",
		field, start.Format(filterLayout), field, end.Format(filterLayout))
}
