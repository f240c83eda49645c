// Package drive wraps the Google Drive v3 API for the two folders glbot
// cares about: the source folder with monthly ledger workbooks and the
// output folder for generated result sheets.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/glbot/glbot/internal/config"
)

// ErrNotConfigured means a required folder id or credential is unset.
var ErrNotConfigured = errors.New("drive: not configured")

// ledgerNamePattern matches the monthly general-ledger workbook names,
// e.g. GL_FP_2025_07.xlsx.
var ledgerNamePattern = regexp.MustCompile(`(?i)^GL_FP_\d{4}_\d{2}\.xlsx$`)

// MatchesLedgerName reports whether name looks like a monthly ledger workbook.
func MatchesLedgerName(name string) bool {
	return ledgerNamePattern.MatchString(strings.TrimSpace(name))
}

// LedgerFile is a remote workbook candidate for scanning.
type LedgerFile struct {
	ID           string
	Name         string
	ModifiedTime time.Time
}

// Service is a thin wrapper over the Drive API bound to the configured folders.
type Service struct {
	svc *driveapi.Service
	cfg config.DriveConfig
}

// New builds a Service from service-account credentials JSON.
func New(ctx context.Context, cfg config.DriveConfig) (*Service, error) {
	creds := strings.TrimSpace(cfg.CredentialsJSON)
	if creds == "" {
		return nil, fmt.Errorf("%w: missing credentials json", ErrNotConfigured)
	}
	jwtConfig, err := google.JWTConfigFromJSON([]byte(creds), driveapi.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("drive: parse credentials: %w", err)
	}
	return NewWithOptions(ctx, cfg, option.WithHTTPClient(jwtConfig.Client(ctx)))
}

// NewWithOptions builds a Service with explicit client options. Used by New
// and by tests that point the client at a fake endpoint.
func NewWithOptions(ctx context.Context, cfg config.DriveConfig, opts ...option.ClientOption) (*Service, error) {
	svc, err := driveapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: create service: %w", err)
	}
	return &Service{svc: svc, cfg: cfg}, nil
}

// ListLedgerFiles returns up to max ledger workbooks from the source folder,
// most recently modified first.
func (s *Service) ListLedgerFiles(ctx context.Context, max int) ([]LedgerFile, error) {
	folder := strings.TrimSpace(s.cfg.SourceFolderID)
	if folder == "" {
		return nil, fmt.Errorf("%w: missing source folder id", ErrNotConfigured)
	}
	if max <= 0 {
		max = 1
	}

	out := make([]LedgerFile, 0, max)
	query := fmt.Sprintf("'%s' in parents and trashed = false", folder)
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(query).
			OrderBy("modifiedTime desc").
			PageSize(100).
			Fields("nextPageToken, files(id, name, modifiedTime)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("drive: list files: %w", err)
		}
		for _, f := range page.Files {
			if !MatchesLedgerName(f.Name) {
				continue
			}
			mod, _ := time.Parse(time.RFC3339, f.ModifiedTime)
			out = append(out, LedgerFile{ID: f.Id, Name: f.Name, ModifiedTime: mod})
			if len(out) >= max {
				return out, nil
			}
		}
		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

// Download fetches a workbook's raw bytes.
func (s *Service) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("drive: download %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive: download %s: %w", fileID, err)
	}
	return data, nil
}

// Upload stores a local file in the output folder under name and returns a
// shareable link: the view link when present, the content link otherwise.
func (s *Service) Upload(ctx context.Context, localPath, name string) (string, error) {
	folder := strings.TrimSpace(s.cfg.OutputFolderID)
	if folder == "" {
		return "", fmt.Errorf("%w: missing output folder id", ErrNotConfigured)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("drive: open %s: %w", localPath, err)
	}
	defer f.Close()

	meta := &driveapi.File{Name: name, Parents: []string{folder}}
	created, err := s.svc.Files.Create(meta).
		Media(f).
		Fields("id, webViewLink, webContentLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive: upload %s: %w", name, err)
	}
	link := strings.TrimSpace(created.WebViewLink)
	if link == "" {
		link = strings.TrimSpace(created.WebContentLink)
	}
	return link, nil
}
