// Package media stores uploaded voice memos and photos on disk and optionally
// mirrors them to S3-compatible object storage.
package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Subdirectories of the upload root.
const (
	DirAudio  = "audio"
	DirFotos  = "fotos"
	DirOutros = "outros"
)

// Sentinel errors for media storage.
var (
	// ErrUnsupportedType is returned for files that are neither audio nor image.
	ErrUnsupportedType = errors.New("tipo de arquivo não suportado")
	// ErrTooLarge is returned when a file exceeds the configured limit.
	ErrTooLarge = errors.New("arquivo excede o tamanho máximo")
)

// extByMime maps accepted MIME types to file extensions.
var extByMime = map[string]string{
	"audio/webm": ".webm",
	"audio/wav":  ".wav",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/ogg":  ".ogg",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// maxNameAttempts bounds the suffixes tried for a colliding filename.
const maxNameAttempts = 100

// StoredFile describes a file written to the upload root.
type StoredFile struct {
	Filename string
	Subdir   string
	Path     string
	URL      string
	MimeType string
	Size     int64
}

// Storage writes media files under a root directory.
type Storage struct {
	root     string
	urlBase  string
	maxBytes int64
	now      func() time.Time
}

// NewStorage creates the upload subdirectories under root.
func NewStorage(root, urlBase string, maxBytes int64) (*Storage, error) {
	for _, dir := range []string{DirAudio, DirFotos, DirOutros} {
		full := filepath.Join(root, dir)
		if _, err := os.Stat(full); os.IsNotExist(err) {
			if err := os.MkdirAll(full, 0o755); err != nil {
				return nil, util.WrapError("create upload directory", err)
			}
			slog.Info("created upload directory", "path", full)
		}
	}
	return &Storage{
		root:     root,
		urlBase:  strings.TrimRight(urlBase, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}, nil
}

// Root returns the upload root directory.
func (s *Storage) Root() string {
	return s.root
}

// MaxBytes returns the upload size limit.
func (s *Storage) MaxBytes() int64 {
	return s.maxBytes
}

// SubdirFor returns the subdirectory for a media kind. Kinds containing
// "AUDIO" go to audio, "FOTO" to fotos, anything else to outros.
func SubdirFor(tipo string) string {
	switch {
	case strings.Contains(tipo, "AUDIO"):
		return DirAudio
	case tipo == "FOTO":
		return DirFotos
	default:
		return DirOutros
	}
}

// ExtFor returns the extension of the original filename, falling back to
// the MIME type and finally ".bin".
func ExtFor(originalName, mimeType string) string {
	if ext := filepath.Ext(originalName); ext != "" {
		return ext
	}
	if ext, ok := extByMime[baseMime(mimeType)]; ok {
		return ext
	}
	return ".bin"
}

// Accepts reports whether the MIME type is audio or image.
func Accepts(mimeType string) bool {
	m := baseMime(mimeType)
	return strings.HasPrefix(m, "audio/") || strings.HasPrefix(m, "image/")
}

// baseMime strips parameters such as ";codecs=opus".
func baseMime(mimeType string) string {
	if m, _, err := mime.ParseMediaType(mimeType); err == nil {
		return m
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Save writes r to <root>/<subdir>/<tipo>_<unix ms><ext> and returns the
// stored file. Oversized files are removed and ErrTooLarge is returned.
func (s *Storage) Save(r io.Reader, tipo, originalName, mimeType string) (*StoredFile, error) {
	if !Accepts(mimeType) {
		return nil, ErrUnsupportedType
	}

	prefix := tipo
	if prefix == "" {
		prefix = "file"
	}
	subdir := SubdirFor(tipo)
	ext := ExtFor(originalName, mimeType)
	ts := s.now().UnixMilli()

	// Names collide when two files of one kind arrive within a millisecond.
	var f *os.File
	var filename, path string
	for attempt := 0; ; attempt++ {
		filename = fmt.Sprintf("%s_%d%s", sanitize(prefix), ts, ext)
		if attempt > 0 {
			filename = fmt.Sprintf("%s_%d_%d%s", sanitize(prefix), ts, attempt, ext)
		}
		path = filepath.Join(s.root, subdir, filename)

		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			break
		}
		if !os.IsExist(err) || attempt >= maxNameAttempts {
			return nil, util.WrapError("create media file", err)
		}
	}

	limit := r
	if s.maxBytes > 0 {
		limit = io.LimitReader(r, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, limit)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return nil, util.WrapError("write media file", copyErr)
	case closeErr != nil:
		_ = os.Remove(path)
		return nil, util.WrapError("close media file", closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = os.Remove(path)
		return nil, ErrTooLarge
	}

	return &StoredFile{
		Filename: filename,
		Subdir:   subdir,
		Path:     path,
		URL:      s.urlBase + "/" + subdir + "/" + filename,
		MimeType: mimeType,
		Size:     n,
	}, nil
}

// Open opens a stored file by path. Paths outside the root are rejected.
func (s *Storage) Open(path string) (*os.File, error) {
	if !s.contains(path) {
		return nil, fmt.Errorf("path %q outside upload root", path)
	}
	return os.Open(path)
}

// Remove deletes stored files best-effort and returns how many were removed.
func (s *Storage) Remove(paths []string) int {
	removed := 0
	for _, p := range paths {
		if !s.contains(p) {
			slog.Warn("refusing to remove file outside upload root", "path", p)
			continue
		}
		if err := os.Remove(p); err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("failed to remove media file", "path", p, "error", err)
			}
			continue
		}
		slog.Info("removed media file", "path", p)
		removed++
	}
	return removed
}

// contains reports whether path lies inside the upload root.
func (s *Storage) contains(path string) bool {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// sanitize keeps a filename prefix to safe characters.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
