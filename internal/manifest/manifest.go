// Package manifest records what a backup run wrote and finds backups on disk.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/randalmurphal/repoback/internal/util"
)

// FileName is the manifest's name inside a backup directory.
const FileName = "manifest.json"

// FormatVersion is bumped whenever the on-disk layout changes.
const FormatVersion = 1

// ErrNotFound is returned by Read when dir has no manifest.
var ErrNotFound = errors.New("manifest not found")

// Manifest describes one backup run.
type Manifest struct {
	FormatVersion int            `json:"format_version"`
	RunID         string         `json:"run_id"`
	Repository    string         `json:"repository"`
	CreatedAt     time.Time      `json:"created_at"`
	Backend       string         `json:"backend"`
	Entities      map[string]int `json:"entities"`
	Failed        []string       `json:"failed,omitempty"`
}

// New starts a manifest for repo with a fresh run id.
func New(repo, backend string) *Manifest {
	return &Manifest{
		FormatVersion: FormatVersion,
		RunID:         uuid.NewString(),
		Repository:    repo,
		CreatedAt:     time.Now().UTC(),
		Backend:       backend,
		Entities:      make(map[string]int),
	}
}

// Record stores the number of records saved for an entity type.
func (m *Manifest) Record(entityName string, count int) {
	if m.Entities == nil {
		m.Entities = make(map[string]int)
	}
	m.Entities[entityName] = count
}

// Fail marks an entity type as failed in this run.
func (m *Manifest) Fail(entityName string) {
	m.Failed = append(m.Failed, entityName)
	sort.Strings(m.Failed)
}

// Total returns the number of records across all entity types.
func (m *Manifest) Total() int {
	total := 0
	for _, n := range m.Entities {
		total += n
	}
	return total
}

// Write stores m as dir/manifest.json, replacing any previous manifest.
func Write(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := util.WriteFileAtomic(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Read loads dir/manifest.json.
func Read(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", dir, err)
	}
	if m.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("manifest %s has format version %d, newest supported is %d",
			dir, m.FormatVersion, FormatVersion)
	}
	return &m, nil
}

// Summary is the short form of a manifest shown by `repoback list`.
type Summary struct {
	Dir        string    `json:"dir"`
	RunID      string    `json:"run_id"`
	Repository string    `json:"repository"`
	CreatedAt  time.Time `json:"created_at"`
	Entities   int       `json:"entities"`
	Records    int       `json:"records"`
	Failed     int       `json:"failed"`
}

// Summarize extracts a Summary from raw manifest JSON without decoding
// the whole document. Unknown fields from newer versions are ignored.
func Summarize(dir string, data []byte) (Summary, error) {
	if !gjson.ValidBytes(data) {
		return Summary{}, fmt.Errorf("manifest %s is not valid JSON", dir)
	}
	doc := gjson.ParseBytes(data)
	if !doc.Get("run_id").Exists() {
		return Summary{}, fmt.Errorf("manifest %s has no run_id", dir)
	}

	s := Summary{
		Dir:        dir,
		RunID:      doc.Get("run_id").String(),
		Repository: doc.Get("repository").String(),
		Failed:     int(doc.Get("failed.#").Int()),
	}
	if created := doc.Get("created_at").String(); created != "" {
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return Summary{}, fmt.Errorf("manifest %s: created_at: %w", dir, err)
		}
		s.CreatedAt = t
	}
	doc.Get("entities").ForEach(func(_, value gjson.Result) bool {
		s.Entities++
		s.Records += int(value.Int())
		return true
	})
	return s, nil
}

// Discover finds every backup below root and returns their summaries,
// newest first. Directories with an unreadable manifest are skipped and
// reported through skipped.
func Discover(root string) (found []Summary, skipped []error, err error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, "**/"+FileName)
	if err != nil {
		return nil, nil, fmt.Errorf("search %s: %w", root, err)
	}
	sort.Strings(matches)

	for _, match := range matches {
		data, err := fs.ReadFile(fsys, match)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("read %s: %w", match, err))
			continue
		}
		dir := filepath.Join(root, filepath.FromSlash(path.Dir(match)))
		s, err := Summarize(dir, data)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		found = append(found, s)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})
	return found, skipped, nil
}
