// Package store persists pipeline artifacts under <root>/<date>/ so a run for
// a given date can be resumed or re-executed stage by stage.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

const (
	itemsFile       = "items.json"
	scriptFile      = "script.json"
	audioFile       = "audio.json"
	subtitlesFile   = "subtitles.json"
	videoFile       = "video.json"
	publicationFile = "publish.json"
)

// Store is a filesystem ArtifactStore rooted at one profile directory.
type Store struct {
	root string
}

var _ ports.ArtifactStore = (*Store)(nil)

// New returns a store rooted at dir. The directory is created lazily.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the profile directory.
func (s *Store) Root() string { return s.root }

// Dir returns the directory holding artifacts for date.
func (s *Store) Dir(date string) string {
	return filepath.Join(s.root, date)
}

func (s *Store) LoadItems(date string) (domain.ItemBatch, error) {
	var v domain.ItemBatch
	return v, s.load(date, itemsFile, &v)
}

func (s *Store) SaveItems(date string, batch domain.ItemBatch) error {
	return s.save(date, itemsFile, batch)
}

func (s *Store) LoadScript(date string) (domain.Script, error) {
	var v domain.Script
	return v, s.load(date, scriptFile, &v)
}

func (s *Store) SaveScript(date string, script domain.Script) error {
	return s.save(date, scriptFile, script)
}

func (s *Store) LoadAudio(date string) (domain.AudioAsset, error) {
	var v domain.AudioAsset
	return v, s.load(date, audioFile, &v)
}

func (s *Store) SaveAudio(date string, audio domain.AudioAsset) error {
	return s.save(date, audioFile, audio)
}

func (s *Store) LoadSubtitles(date string) (domain.SubtitleTrack, error) {
	var v domain.SubtitleTrack
	return v, s.load(date, subtitlesFile, &v)
}

func (s *Store) SaveSubtitles(date string, track domain.SubtitleTrack) error {
	return s.save(date, subtitlesFile, track)
}

func (s *Store) LoadVideo(date string) (domain.VideoOutput, error) {
	var v domain.VideoOutput
	return v, s.load(date, videoFile, &v)
}

func (s *Store) SaveVideo(date string, video domain.VideoOutput) error {
	return s.save(date, videoFile, video)
}

func (s *Store) LoadPublication(date string) (domain.Publication, error) {
	var v domain.Publication
	return v, s.load(date, publicationFile, &v)
}

func (s *Store) SavePublication(date string, pub domain.Publication) error {
	return s.save(date, publicationFile, pub)
}

// MediaPath is the final location of a media file for date.
func (s *Store) MediaPath(date, name string) string {
	return filepath.Join(s.Dir(date), name)
}

// WriteMedia atomically stores binary media and returns its path.
func (s *Store) WriteMedia(date, name string, data []byte) (string, error) {
	path := s.MediaPath(date, name)
	if err := WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// StagingPath reserves a temporary file next to the final media location.
// The caller fills it and calls Promote, or removes it on failure.
func (s *Store) StagingPath(date, name string) (string, error) {
	dir := s.Dir(date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	ext := filepath.Ext(name)
	f, err := os.CreateTemp(dir, "."+name[:len(name)-len(ext)]+"-*"+ext)
	if err != nil {
		return "", fmt.Errorf("staging %s: %w", name, err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("staging %s: %w", name, err)
	}
	return path, nil
}

// Promote renames a staged file over its final path.
func (s *Store) Promote(staging, final string) error {
	if err := os.Rename(staging, final); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("promote %s: %w", filepath.Base(final), err)
	}
	return nil
}

// Exists reports whether path names a non-empty regular file.
func (s *Store) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Dates lists stored run dates in ascending order.
func (s *Store) Dates() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(time.DateOnly, e.Name()); err == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func (s *Store) load(date, name string, into any) error {
	path := filepath.Join(s.Dir(date), name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s for %s: %w", name, date, domain.ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *Store) save(date, name string, value any) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return WriteFileAtomic(filepath.Join(s.Dir(date), name), raw)
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
