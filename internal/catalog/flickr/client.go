package flickr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/handiism/snarf/internal/catalog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the public REST endpoint.
	DefaultEndpoint = "https://api.flickr.com/services/rest/"

	defaultTimeout = 30 * time.Second
	userAgent      = "snarf/1.0"
	perPage        = 500
	maxPages       = 10000

	methodWithGeo    = "flickr.photos.getWithGeoData"
	methodWithoutGeo = "flickr.photos.getWithoutGeoData"
	methodPerms      = "flickr.photos.getPerms"
	methodSizes      = "flickr.photos.getSizes"
	methodInfo       = "flickr.photos.getInfo"
	methodLocation   = "flickr.photos.geo.getLocation"
	methodLogin      = "flickr.test.login"
)

// APIError is a "stat":"fail" response from the service.
type APIError struct {
	Method  string
	Code    int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: error %d: %s", e.Method, e.Code, e.Message)
}

// Unwrap returns the catalog sentinel matching the error code, if any.
func (e *APIError) Unwrap() error {
	return e.kind
}

// classify maps service error codes onto catalog sentinels.
func classify(method string, code int) error {
	switch {
	case code >= 96 && code <= 100:
		// invalid signature, missing signature, login failed, insufficient
		// permissions, invalid API key
		return catalog.ErrAuthFailed
	case method == methodLocation && code == 2:
		return catalog.ErrNoLocation
	case code == 1 && (method == methodPerms || method == methodSizes || method == methodInfo || method == methodLocation):
		return catalog.ErrNotFound
	}
	return nil
}

// Options configures a Client.
type Options struct {
	// Endpoint is the REST endpoint; DefaultEndpoint when empty.
	Endpoint string

	// APIKey identifies the application.
	APIKey string

	// Token is the user's stored credential, sent as a bearer token.
	Token string

	// RequestsPerSecond paces requests; 0 disables pacing.
	RequestsPerSecond float64

	// Timeout bounds each request; 30s when zero.
	Timeout time.Duration

	// Transport overrides the base HTTP transport (tests).
	Transport http.RoundTripper

	Logger *log.Logger
}

// Client implements catalog.Catalog against a Flickr-compatible REST API.
//
// Every call is a GET of
//
//	<endpoint>?method=<name>&api_key=<key>&format=json&nojsoncallback=1&...
//
// authenticated with the stored credential. The list calls follow pagination
// until the last page.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

var _ catalog.Catalog = (*Client)(nil)

// NewClient creates a Client. The credential is attached to every request
// through an oauth2 transport.
func NewClient(opts Options) *Client {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	base := &http.Client{Transport: opts.Transport}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: opts.Token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = timeout

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		endpoint:   endpoint,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}
}

// Login verifies the credential and returns the user name.
func (c *Client) Login(ctx context.Context) (string, error) {
	var resp loginResponse
	if err := c.call(ctx, methodLogin, nil, &resp); err != nil {
		return "", err
	}
	if resp.User.Username.Content != "" {
		return resp.User.Username.Content, nil
	}
	return resp.User.ID, nil
}

// ListWithGeo returns all of the user's geotagged photos.
func (c *Client) ListWithGeo(ctx context.Context) ([]catalog.Item, error) {
	return c.listAll(ctx, methodWithGeo)
}

// ListWithoutGeo returns all of the user's photos without geodata.
func (c *Client) ListWithoutGeo(ctx context.Context) ([]catalog.Item, error) {
	return c.listAll(ctx, methodWithoutGeo)
}

func (c *Client) listAll(ctx context.Context, method string) ([]catalog.Item, error) {
	var items []catalog.Item
	for page := 1; page <= maxPages; page++ {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(perPage))
		params.Set("page", strconv.Itoa(page))

		var resp photoList
		if err := c.call(ctx, method, params, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Photos.Photo {
			items = append(items, catalog.Item{ID: p.ID, Title: p.Title})
		}

		if page >= resp.Photos.Pages.Int() || len(resp.Photos.Photo) == 0 {
			break
		}
	}
	return items, nil
}

// Permissions returns the visibility flags of a photo.
func (c *Client) Permissions(ctx context.Context, id string) (catalog.Permissions, error) {
	var resp permsResponse
	if err := c.call(ctx, methodPerms, photoParams(id), &resp); err != nil {
		return catalog.Permissions{}, err
	}
	return catalog.Permissions{
		IsPublic: resp.Perms.IsPublic.Int() == 1,
		IsFriend: resp.Perms.IsFriend.Int() == 1,
		IsFamily: resp.Perms.IsFamily.Int() == 1,
	}, nil
}

// Sizes returns the renditions of a photo, smallest first.
func (c *Client) Sizes(ctx context.Context, id string) ([]catalog.Size, error) {
	var resp sizesResponse
	if err := c.call(ctx, methodSizes, photoParams(id), &resp); err != nil {
		return nil, err
	}
	sizes := make([]catalog.Size, 0, len(resp.Sizes.Size))
	for _, s := range resp.Sizes.Size {
		sizes = append(sizes, catalog.Size{
			Label:  s.Label,
			Width:  s.Width.Int(),
			Height: s.Height.Int(),
			Source: s.Source,
		})
	}
	return sizes, nil
}

// Info returns the title, description and tags of a photo.
func (c *Client) Info(ctx context.Context, id string) (catalog.Info, error) {
	var resp infoResponse
	if err := c.call(ctx, methodInfo, photoParams(id), &resp); err != nil {
		return catalog.Info{}, err
	}
	info := catalog.Info{
		Title:       resp.Photo.Title.Content,
		Description: resp.Photo.Description.Content,
	}
	for _, t := range resp.Photo.Tags.Tag {
		tag := t.Raw
		if tag == "" {
			tag = t.Content
		}
		if tag != "" {
			info.Tags = append(info.Tags, tag)
		}
	}
	return info, nil
}

// Location returns the geodata of a photo, or catalog.ErrNoLocation.
func (c *Client) Location(ctx context.Context, id string) (catalog.Location, error) {
	var resp locationResponse
	if err := c.call(ctx, methodLocation, photoParams(id), &resp); err != nil {
		return catalog.Location{}, err
	}
	loc := resp.Photo.Location
	out := catalog.Location{
		Locality: loc.Locality.Content,
		Region:   loc.Region.Content,
		Country:  loc.Country.Content,
	}
	if lat, ok := loc.Latitude.Float(); ok {
		out.Latitude = &lat
	}
	if lon, ok := loc.Longitude.Float(); ok {
		out.Longitude = &lon
	}
	return out, nil
}

func photoParams(id string) url.Values {
	params := url.Values{}
	params.Set("photo_id", id)
	return params
}

// call performs one API method and decodes the response into dest.
func (c *Client) call(ctx context.Context, method string, params url.Values, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("method", method)
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")
	query.Set("nojsoncallback", "1")

	reqURL := c.endpoint + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("catalog request", "method", method, "photo", params.Get("photo_id"), "page", params.Get("page"))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", method, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", method, catalog.ErrAuthFailed)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s: unexpected status code: %d", method, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", method, err)
	}
	if env.Stat != "ok" {
		apiErr := &APIError{Method: method, Code: env.Code, Message: env.Message, kind: classify(method, env.Code)}
		if !errors.Is(apiErr, catalog.ErrNoLocation) {
			c.logger.Warn("catalog error", "method", method, "code", env.Code, "message", env.Message)
		}
		return apiErr
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", method, err)
	}
	return nil
}
