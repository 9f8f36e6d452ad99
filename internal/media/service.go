package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/renpay/renpay-backend/pkg/config"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/logger"
)

const (
	ProviderGoogleDrive = "google-drive"
	ProviderDropbox     = "dropbox"
)

// File is one media item behind a shared link.
type File struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	PreviewURL   *string `json:"previewUrl"`
	DownloadURL  *string `json:"downloadUrl"`
	Provider     string  `json:"provider"`
}

// Result is the proxied folder listing.
type Result struct {
	Provider string `json:"provider"`
	Files    []File `json:"files"`
	Count    int    `json:"count"`
}

// Service resolves shared Drive/Dropbox links into browsable media listings.
type Service struct {
	cfg        config.MediaConfig
	httpClient *http.Client
	logger     *logger.Logger

	driveBaseURL          string
	dropboxBaseURL        string
	dropboxContentBaseURL string
}

// NewService builds the media proxy.
func NewService(cfg config.MediaConfig, logg *logger.Logger) *Service {
	return &Service{
		cfg:                   cfg,
		httpClient:            &http.Client{Timeout: 30 * time.Second},
		logger:                logg,
		driveBaseURL:          "https://www.googleapis.com",
		dropboxBaseURL:        "https://api.dropboxapi.com",
		dropboxContentBaseURL: "https://content.dropboxapi.com",
	}
}

// Fetch lists the media files behind a shared Drive or Dropbox link.
func (s *Service) Fetch(ctx context.Context, link string) (*Result, error) {
	switch DetectProvider(link) {
	case ProviderGoogleDrive:
		return s.fetchFromDrive(ctx, link)
	case ProviderDropbox:
		return s.fetchFromDropbox(ctx, link)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"invalid link, provide a Google Drive or Dropbox shared link")
	}
}

// DetectProvider classifies a shared link by host.
func DetectProvider(link string) string {
	switch {
	case link == "":
		return ""
	case strings.Contains(link, "drive.google.com"):
		return ProviderGoogleDrive
	case strings.Contains(link, "dropbox.com"):
		return ProviderDropbox
	default:
		return ""
	}
}

var driveFolderRe = regexp.MustCompile(`/folders/([^/?]+)`)

// ExtractDriveFolderID pulls the folder id out of a Drive share URL, covering
// both /drive/folders/ID and /drive/u/0/folders/ID forms.
func ExtractDriveFolderID(link string) string {
	if m := driveFolderRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

// NormalizeDropboxLink strips query parameters except rlkey and pins dl=0 so
// the Dropbox API accepts the shared link.
func NormalizeDropboxLink(link string) string {
	clean := link
	if i := strings.Index(link, "?"); i >= 0 {
		clean = link[:i]
	}
	if parsed, err := url.Parse(link); err == nil {
		if rlkey := parsed.Query().Get("rlkey"); rlkey != "" {
			return fmt.Sprintf("%s?rlkey=%s&dl=0", clean, rlkey)
		}
	}
	return clean + "?dl=0"
}

func (s *Service) fetchFromDrive(ctx context.Context, link string) (*Result, error) {
	folderID := ExtractDriveFolderID(link)
	if folderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "could not extract folder id from Google Drive link")
	}
	if s.cfg.DriveAPIKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "Google Drive API key not configured")
	}

	query := url.Values{}
	query.Set("q", fmt.Sprintf("'%s' in parents", folderID))
	query.Set("key", s.cfg.DriveAPIKey)
	query.Set("fields", "files(id,name,mimeType,thumbnailLink,webContentLink)")
	query.Set("pageSize", "100")
	query.Set("orderBy", "name")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.driveBaseURL+"/drive/v3/files?"+query.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building drive request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing drive folder")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp, "Google Drive listing failed")
	}

	var payload struct {
		Files []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			MimeType      string `json:"mimeType"`
			ThumbnailLink string `json:"thumbnailLink"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding drive response")
	}

	result := &Result{Provider: ProviderGoogleDrive, Files: []File{}}
	for _, f := range payload.Files {
		if !strings.HasPrefix(f.MimeType, "image/") && !strings.HasPrefix(f.MimeType, "video/") {
			continue
		}
		file := File{
			ID:       f.ID,
			Name:     f.Name,
			Type:     f.MimeType,
			Provider: ProviderGoogleDrive,
		}
		if f.ThumbnailLink != "" {
			thumb := strings.Replace(f.ThumbnailLink, "=s220", "=s2048", 1)
			file.ThumbnailURL = &thumb
		}
		preview := fmt.Sprintf("https://drive.google.com/uc?export=view&id=%s", f.ID)
		download := fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", f.ID)
		file.PreviewURL = &preview
		file.DownloadURL = &download
		result.Files = append(result.Files, file)
	}
	result.Count = len(result.Files)
	return result, nil
}

var (
	dropboxMediaRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|mp4|mov|avi)$`)
	dropboxVideoRe = regexp.MustCompile(`(?i)\.(mp4|mov|avi)$`)
)

func (s *Service) fetchFromDropbox(ctx context.Context, link string) (*Result, error) {
	token, err := s.dropboxAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.dropboxListFolder(ctx, token, NormalizeDropboxLink(link))
	if err != nil {
		return nil, err
	}

	result := &Result{Provider: ProviderDropbox, Files: []File{}}
	for _, entry := range entries {
		if entry.Tag != "file" || !dropboxMediaRe.MatchString(entry.Name) {
			continue
		}

		path := entry.PathLower
		if path == "" {
			path = entry.ID
		}

		fileType := "image"
		if dropboxVideoRe.MatchString(entry.Name) {
			fileType = "video"
		}
		file := File{
			ID:       entry.ID,
			Name:     entry.Name,
			Type:     fileType,
			Provider: ProviderDropbox,
		}

		// best-effort enrichment, a missing thumbnail is not an error
		if thumb := s.dropboxThumbnail(ctx, token, path); thumb != "" {
			file.ThumbnailURL = &thumb
		}
		if temp := s.dropboxTemporaryLink(ctx, token, path); temp != "" {
			file.PreviewURL = &temp
			file.DownloadURL = &temp
		}
		result.Files = append(result.Files, file)
	}
	result.Count = len(result.Files)
	return result, nil
}

// dropboxAccessToken exchanges the refresh token for a short-lived access
// token. Dropbox tokens expire in four hours, refreshing per request keeps
// this stateless.
func (s *Service) dropboxAccessToken(ctx context.Context) (string, error) {
	if s.cfg.DropboxRefreshToken == "" || s.cfg.DropboxAppKey == "" || s.cfg.DropboxAppSecret == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "Dropbox credentials not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.cfg.DropboxRefreshToken)
	form.Set("client_id", s.cfg.DropboxAppKey)
	form.Set("client_secret", s.cfg.DropboxAppSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.dropboxBaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building dropbox token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refreshing dropbox token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", upstreamError(resp, "Dropbox token refresh failed")
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding dropbox token response")
	}
	return payload.AccessToken, nil
}

type dropboxEntry struct {
	Tag       string `json:".tag"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	PathLower string `json:"path_lower"`
}

func (s *Service) dropboxListFolder(ctx context.Context, token, sharedLink string) ([]dropboxEntry, error) {
	body, _ := json.Marshal(map[string]any{
		"path":        "",
		"shared_link": map[string]string{"url": sharedLink},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.dropboxBaseURL+"/2/files/list_folder", strings.NewReader(string(body)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building dropbox list request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing dropbox folder")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp, "Dropbox listing failed")
	}

	var payload struct {
		Entries []dropboxEntry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding dropbox listing")
	}
	return payload.Entries, nil
}

func (s *Service) dropboxThumbnail(ctx context.Context, token, path string) string {
	arg, _ := json.Marshal(map[string]any{
		"resource": map[string]string{".tag": "path", "path": path},
		"format":   "jpeg",
		"size":     "w256h256",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.dropboxContentBaseURL+"/2/files/get_thumbnail_v2", nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.warn(ctx, "dropbox thumbnail fetch failed")
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)
}

func (s *Service) dropboxTemporaryLink(ctx context.Context, token, path string) string {
	body, _ := json.Marshal(map[string]string{"path": path})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.dropboxBaseURL+"/2/files/get_temporary_link", strings.NewReader(string(body)))
	if err != nil {
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.warn(ctx, "dropbox temporary link fetch failed")
		return ""
	}
	var payload struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Link
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logger != nil {
		s.logger.Warn(ctx, msg)
	}
}

func upstreamError(resp *http.Response, msg string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	details := map[string]any{"upstreamStatus": resp.StatusCode}
	if len(raw) > 0 {
		details["upstream"] = string(raw)
	}
	return pkgerrors.New(pkgerrors.CodeGateway, msg).WithDetails(details)
}
