// Package upload publishes finished videos to YouTube through the Data API v3.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Static errors for uploads.
var (
	// ErrMissingCredentials is returned when the OAuth client settings are incomplete.
	ErrMissingCredentials = errors.New("upload: YouTube client ID, client secret and refresh token are required")
	// ErrUploadRejected is returned when the platform refuses the upload.
	ErrUploadRejected = errors.New("upload: rejected by platform")
	// ErrNoVideoID is returned when the platform accepts the upload without an identifier.
	ErrNoVideoID = errors.New("upload: no video ID returned")
)

const (
	maxTitleRunes     = 100
	defaultCategoryID = "22"
	defaultPrivacy    = "public"
	watchURLFormat    = "https://www.youtube.com/watch?v=%s"
)

// Video is a finished file plus its publishing metadata.
type Video struct {
	Path        string
	Title       string
	Description string
	Tags        []string
	// CategoryID and Privacy fall back to the uploader defaults when empty.
	CategoryID string
	Privacy    string
}

// Result identifies the published video.
type Result struct {
	VideoID string
	URL     string
}

// Uploader publishes a video and returns its platform identifier.
type Uploader interface {
	Upload(ctx context.Context, v Video) (Result, error)
}

// Config holds the OAuth client and channel defaults.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CategoryID   string
	Privacy      string
}

// Compile-time check that YouTubeUploader implements Uploader.
var _ Uploader = (*YouTubeUploader)(nil)

// YouTubeUploader uploads with a refresh-token OAuth2 client.
type YouTubeUploader struct {
	cfg        Config
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

// Option configures a YouTubeUploader.
type Option func(*YouTubeUploader)

// WithHTTPClient uses c as-is instead of building an OAuth2 client.
func WithHTTPClient(c *http.Client) Option {
	return func(u *YouTubeUploader) {
		u.httpClient = c
	}
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(u *YouTubeUploader) {
		u.endpoint = endpoint
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *YouTubeUploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewYouTubeUploader creates an uploader. Credentials are required unless an
// HTTP client is supplied with WithHTTPClient.
func NewYouTubeUploader(cfg Config, opts ...Option) (*YouTubeUploader, error) {
	if cfg.CategoryID == "" {
		cfg.CategoryID = defaultCategoryID
	}
	if cfg.Privacy == "" {
		cfg.Privacy = defaultPrivacy
	}

	u := &YouTubeUploader{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(u)
	}

	if u.httpClient == nil && (cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "") {
		return nil, ErrMissingCredentials
	}
	return u, nil
}

// Upload sends v.Path with its snippet and status and returns the new video ID.
func (u *YouTubeUploader) Upload(ctx context.Context, v Video) (Result, error) {
	svc, err := u.service(ctx)
	if err != nil {
		return Result{}, err
	}

	f, err := os.Open(v.Path) // #nosec G304 - path is built by the pipeline
	if err != nil {
		return Result{}, fmt.Errorf("open video file: %w", err)
	}
	defer func() { _ = f.Close() }()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       truncateRunes(strings.TrimSpace(v.Title), maxTitleRunes),
			Description: v.Description,
			Tags:        v.Tags,
			CategoryId:  firstNonEmpty(v.CategoryID, u.cfg.CategoryID),
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           firstNonEmpty(v.Privacy, u.cfg.Privacy),
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	start := time.Now()
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUploadRejected, err)
	}
	if uploaded.Id == "" {
		return Result{}, ErrNoVideoID
	}

	res := Result{VideoID: uploaded.Id, URL: fmt.Sprintf(watchURLFormat, uploaded.Id)}
	u.logger.Info("video uploaded",
		slog.String("video_id", res.VideoID),
		slog.String("url", res.URL),
		slog.String("privacy", video.Status.PrivacyStatus),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (u *YouTubeUploader) service(ctx context.Context) (*youtube.Service, error) {
	client := u.httpClient
	if client == nil {
		client = u.oauthClient(ctx)
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if u.endpoint != "" {
		opts = append(opts, option.WithEndpoint(u.endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// oauthClient exchanges the stored refresh token for access tokens on demand.
func (u *YouTubeUploader) oauthClient(ctx context.Context) *http.Client {
	conf := &oauth2.Config{
		ClientID:     u.cfg.ClientID,
		ClientSecret: u.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: u.cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	return conf.Client(ctx, token)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
