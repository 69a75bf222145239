package photosource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"

	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/spatial"
)

// ErrInvalidID is returned for photo IDs outside the source root
var ErrInvalidID = errors.New("invalid photo id")

// Source supplies photo records for clustering
type Source interface {
	Records(ctx context.Context, ids []string) ([]models.PhotoRecord, error)
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".heic": true, ".png": true, ".tif": true, ".tiff": true,
}

// DirectorySource reads photo metadata from image files under a root directory.
// Photo IDs are slash-separated paths relative to the root.
type DirectorySource struct {
	root   string
	fsys   fs.FS
	logger *zap.Logger
}

// NewDirectorySource creates a source over root
func NewDirectorySource(root string, logger *zap.Logger) (*DirectorySource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectorySource{root: root, fsys: os.DirFS(root), logger: logger}, nil
}

// Scan lists the IDs of all image files under the root in lexical order
func (s *DirectorySource) Scan(ctx context.Context) ([]string, error) {
	var ids []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if imageExtensions[strings.ToLower(path.Ext(p))] {
			ids = append(ids, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Records reads the capture time and location of each photo.
// Photos without EXIF fall back to the file modification time and no location.
func (s *DirectorySource) Records(ctx context.Context, ids []string) ([]models.PhotoRecord, error) {
	records := make([]models.PhotoRecord, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.record(id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// All scans the root and reads every photo
func (s *DirectorySource) All(ctx context.Context) ([]models.PhotoRecord, error) {
	ids, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return s.Records(ctx, ids)
}

func (s *DirectorySource) record(id string) (models.PhotoRecord, error) {
	if !fs.ValidPath(id) || id == "." {
		return models.PhotoRecord{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	f, err := s.fsys.Open(id)
	if err != nil {
		return models.PhotoRecord{}, fmt.Errorf("failed to open photo %s: %w", id, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.PhotoRecord{}, fmt.Errorf("failed to stat photo %s: %w", id, err)
	}

	rec := models.PhotoRecord{ID: id, TakenAt: info.ModTime()}

	x, err := exif.Decode(f)
	if err != nil {
		s.logger.Debug("No EXIF data, using modification time",
			zap.String("photo", filepath.ToSlash(id)), zap.Error(err))
		return rec, nil
	}

	if taken, err := x.DateTime(); err == nil {
		rec.TakenAt = taken
	}
	if lat, lon, err := x.LatLong(); err == nil {
		coord := models.Coordinate{Latitude: lat, Longitude: lon}
		if spatial.Valid(coord) {
			rec.Coordinate = &coord
		}
	}
	return rec, nil
}
