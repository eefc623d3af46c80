package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"igbot/pkg/config"
	errs "igbot/pkg/errors"
	"igbot/pkg/logger"
	"igbot/pkg/metrics"
	"igbot/pkg/ratelimit"
	"igbot/pkg/retry"
	"igbot/pkg/storage"
)

const (
	// AppID is the web application id Instagram expects on API calls
	AppID = "936619743392459"

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// Options configures a Client
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	UserAgent     string
	Proxy         string
	Retry         config.RetryConfig
	RateLimit     config.RateLimitConfig
	DownloadDir   string
	NormalizeSize int
	Logger        logger.Logger
}

// OptionsFromConfig derives client options from the application config
func OptionsFromConfig(cfg *config.Config, log logger.Logger) Options {
	return Options{
		BaseURL:       BaseURL,
		Timeout:       cfg.Account.Timeout,
		UserAgent:     cfg.Account.UserAgent,
		Proxy:         cfg.Account.Proxy,
		Retry:         cfg.Retry,
		RateLimit:     cfg.RateLimit,
		DownloadDir:   cfg.Files.DownloadDir,
		NormalizeSize: cfg.Files.NormalizeSize,
		Logger:        log,
	}
}

// Client talks to Instagram's web API and implements social.Client
type Client struct {
	httpClient    *http.Client
	headers       map[string]string
	baseURL       string
	logger        logger.Logger
	retry         *retry.Config
	limiter       ratelimit.Limiter
	storage       *storage.Manager
	normalizeSize int

	mu     sync.RWMutex
	userID string
}

// NewClient creates a new Instagram API client
func NewClient(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "photos"
	}

	transport, err := newTransport(opts.Proxy)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	store, err := storage.NewManager(opts.DownloadDir)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			Jar:       jar,
		},
		headers: map[string]string{
			"User-Agent":       opts.UserAgent,
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      AppID,
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          opts.BaseURL + "/",
		},
		baseURL:       strings.TrimSuffix(opts.BaseURL, "/"),
		logger:        log,
		retry:         retry.FromSettings(opts.Retry, log),
		storage:       store,
		normalizeSize: opts.NormalizeSize,
	}
	if opts.RateLimit.RequestsPerMinute > 0 {
		c.limiter = ratelimit.NewTokenBucket(opts.RateLimit.RequestsPerMinute, opts.RateLimit.BurstSize)
	}

	return c, nil
}

// newTransport builds an HTTP transport, optionally routed through an
// http(s) or socks5 proxy
func newTransport(proxyAddr string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyAddr == "" {
		return transport, nil
	}

	if !strings.Contains(proxyAddr, "://") {
		proxyAddr = "http://" + proxyAddr
	}
	u, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", proxyAddr, err)
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("invalid socks proxy %q: %w", proxyAddr, err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return transport, nil
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// UserID returns the logged-in account id
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) setUserID(id string) {
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

// csrfToken returns the csrftoken cookie for the base URL
func (c *Client) csrfToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == "csrftoken" {
			return cookie.Value
		}
	}
	return ""
}

// request describes one API call; it is rebuilt on every retry attempt
type request struct {
	method  string
	path    string
	form    url.Values
	body    []byte
	headers map[string]string
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.body != nil:
		body = bytes.NewReader(r.body)
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.resolve(r.path), body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.method != http.MethodGet {
		if token := c.csrfToken(); token != "" {
			req.Header.Set("X-CSRFToken", token)
		}
	}
	for key, value := range r.headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

// doRequest performs an HTTP request and logs it
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// send performs r with throttling and retries and returns the response body
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	cfg := c.retry.WithContext(ctx)
	endpoint := r.path
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		metrics.IncAPIRetry(endpoint)
	}

	return retry.DoWithResult(func() ([]byte, error) {
		if c.limiter != nil {
			start := time.Now()
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			if waited := time.Since(start); waited > time.Second {
				logger.LogRateLimit(c.logger, endpoint, waited)
			}
		}

		req, err := c.newRequest(ctx, r)
		if err != nil {
			return nil, err
		}
		resp, err := c.doRequest(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := c.checkResponseStatus(resp); err != nil {
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
		}
		return body, nil
	}, cfg)
}

// apiStatus is the envelope every private API response carries
type apiStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
}

// sendJSON performs r and decodes the JSON response into target
func (c *Client) sendJSON(ctx context.Context, r request, target interface{}) error {
	body, err := c.send(ctx, r)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"path":         r.path,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.New(errs.ErrorTypeParsing, http.StatusOK, "failed to parse JSON: %v", err)
	}

	var status apiStatus
	if err := json.Unmarshal(body, &status); err == nil && status.Status == "fail" {
		t := errs.ErrorTypeUnknown
		if status.ErrorType == "checkpoint_required" || status.Message == "checkpoint_required" {
			t = errs.ErrorTypeChallenge
		}
		return errs.New(t, http.StatusOK, "%s", status.Message)
	}
	return nil
}

// get fetches path and decodes the JSON response into target
func (c *Client) get(ctx context.Context, path string, target interface{}) error {
	return c.sendJSON(ctx, request{method: http.MethodGet, path: path}, target)
}

// post submits form to path and decodes the JSON response into target
func (c *Client) post(ctx context.Context, path string, form url.Values, target interface{}) error {
	if form == nil {
		form = url.Values{}
	}
	return c.sendJSON(ctx, request{method: http.MethodPost, path: path, form: form}, target)
}

// checkResponseStatus checks the HTTP response status and returns appropriate errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}

	t := errs.FromStatus(resp.StatusCode)
	switch t {
	case errs.ErrorTypeAuth:
		c.logger.WarnWithFields("authentication error", fields)
		return errs.New(t, resp.StatusCode, "authentication required")
	case errs.ErrorTypeChallenge:
		c.logger.WarnWithFields("challenge required", fields)
		return errs.New(t, resp.StatusCode, "checkpoint or bad request")
	case errs.ErrorTypeNotFound:
		c.logger.WarnWithFields("resource not found", fields)
		return errs.New(t, resp.StatusCode, "resource not found")
	case errs.ErrorTypeRateLimit:
		c.logger.WarnWithFields("rate limit exceeded", fields)
		return errs.New(t, resp.StatusCode, "rate limit exceeded")
	case errs.ErrorTypeServerError:
		c.logger.ErrorWithFields("server error", fields)
		return errs.New(t, resp.StatusCode, "server error")
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
		return errs.New(t, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	}
}

// requireLogin returns the logged-in user id or an auth error
func (c *Client) requireLogin() (string, error) {
	id := c.UserID()
	if id == "" {
		return "", errs.New(errs.ErrorTypeAuth, 0, "login required")
	}
	return id, nil
}
