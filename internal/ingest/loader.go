package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/model"
)

// Rejected is a feed entry that failed validation.
type Rejected struct {
	Source     model.SourceKind
	ExternalID string
	Err        error
}

// Batch is the result of loading one or more feeds.
type Batch struct {
	Records  []model.ComplaintRecord
	Rejected []Rejected
}

// Loader reads feeds from a directory.
type Loader struct {
	dir string
	now func() time.Time
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, now: time.Now}
}

// LoadFile loads one feed file as kind.
func (l *Loader) LoadFile(path string, kind model.SourceKind) (*Batch, error) {
	feed, ok := FeedFor(kind)
	if !ok {
		return nil, eris.Errorf("ingest: no feed for source %q", kind)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	recs, err := feed.decode(data)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: %s", path)
	}

	batch := &Batch{}
	for _, rec := range recs {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = l.now().UTC()
		}
		if err := rec.Validate(); err != nil {
			batch.Rejected = append(batch.Rejected, Rejected{Source: kind, ExternalID: rec.ExternalID, Err: err})
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

// Load reads the feeds for kinds, or every feed when kinds is empty.
// Missing feed files are skipped.
func (l *Loader) Load(ctx context.Context, kinds ...model.SourceKind) (*Batch, error) {
	feeds := Feeds()
	if len(kinds) > 0 {
		feeds = feeds[:0:0]
		for _, k := range kinds {
			f, ok := FeedFor(k)
			if !ok {
				return nil, eris.Errorf("ingest: no feed for source %q", k)
			}
			feeds = append(feeds, f)
		}
	}

	out := &Batch{}
	for _, f := range feeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(l.dir, f.File)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			zap.L().Debug("ingest: feed not present", zap.String("path", path))
			continue
		}
		b, err := l.LoadFile(path, f.Kind)
		if err != nil {
			return nil, err
		}
		zap.L().Info("ingest: loaded feed",
			zap.String("source", string(f.Kind)),
			zap.Int("records", len(b.Records)),
			zap.Int("rejected", len(b.Rejected)),
		)
		out.Records = append(out.Records, b.Records...)
		out.Rejected = append(out.Rejected, b.Rejected...)
	}
	return out, nil
}
