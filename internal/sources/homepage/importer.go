package homepage

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

// Saver stores one bookmark for an owner.
type Saver interface {
	Save(ctx context.Context, ownerID string, meta domain.Metadata, rawTags string) (int64, error)
}

// Extractor fetches live page metadata.
type Extractor interface {
	Extract(ctx context.Context, url string) (domain.Metadata, error)
}

// Report summarizes an import run.
type Report struct {
	Saved     int
	Skipped   int // already saved by this owner
	Failed    int
	Extracted int // entries whose metadata came from the live page
}

// Importer feeds Homepage entries through the bookmark save path.
type Importer struct {
	saver     Saver
	extractor Extractor
	logger    logger.Logger
}

// NewImporter creates an Importer. A nil extractor imports the yaml values
// as they are.
func NewImporter(saver Saver, extractor Extractor, log logger.Logger) *Importer {
	return &Importer{saver: saver, extractor: extractor, logger: log}
}

// Import saves every entry for ownerID. Duplicates are skipped and other
// per-entry failures are counted; only an unauthenticated owner or a
// cancelled context stop the run.
func (im *Importer) Import(ctx context.Context, ownerID string, entries []Entry) (Report, error) {
	var rep Report
	if ownerID == "" {
		return rep, domain.ErrUnauthenticated
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		meta := im.metadata(ctx, e, &rep)
		_, err := im.saver.Save(ctx, ownerID, meta, e.Category)
		switch {
		case err == nil:
			rep.Saved++
		case errors.Is(err, domain.ErrDuplicateURL):
			rep.Skipped++
			im.logger.Debug("bookmark already saved, skipping", logger.String("url", e.URL))
		case errors.Is(err, domain.ErrUnauthenticated):
			return rep, err
		default:
			rep.Failed++
			im.logger.Warn("bookmark import failed",
				logger.String("url", e.URL),
				logger.Error(err))
		}
	}

	im.logger.Info("homepage import finished",
		logger.String("owner", ownerID),
		logger.Int("saved", rep.Saved),
		logger.Int("skipped", rep.Skipped),
		logger.Int("failed", rep.Failed))
	return rep, nil
}

func (im *Importer) metadata(ctx context.Context, e Entry, rep *Report) domain.Metadata {
	fallback := domain.Metadata{URL: e.URL, Title: e.Title, Description: e.Description}
	if im.extractor == nil {
		return fallback
	}

	meta, err := im.extractor.Extract(ctx, e.URL)
	if err != nil {
		im.logger.Info("extraction failed, using yaml values",
			logger.String("url", e.URL),
			logger.String("kind", domain.KindOf(err).String()))
		return fallback
	}

	rep.Extracted++
	meta.URL = e.URL
	if meta.Title == domain.DefaultTitle && e.Title != "" {
		meta.Title = e.Title
	}
	if meta.Description == domain.DefaultDescription && e.Description != "" {
		meta.Description = e.Description
	}
	return meta
}
