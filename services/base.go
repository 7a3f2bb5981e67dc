package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"github.com/sahilchouksey/catalog-api/utils/auth"
	"gorm.io/gorm"
)

// ThumbnailRemover deletes stored faculty thumbnails; spaces.Client implements it
type ThumbnailRemover interface {
	DeleteByURL(ctx context.Context, url string) error
}

// Options holds the collaborators shared by all catalog services
type Options struct {
	Locker  Locker
	LockTTL time.Duration
	Logger  *zerolog.Logger
	// Thumbnails is optional; without it thumbnails of deleted faculties stay in storage
	Thumbnails   ThumbnailRemover
	PasswordCost int
}

type base struct {
	db           *gorm.DB
	engine       *consistency.Engine
	locker       Locker
	lockTTL      time.Duration
	log          zerolog.Logger
	thumbs       ThumbnailRemover
	passwordCost int
}

func newBase(db *gorm.DB, engine *consistency.Engine, opts Options) base {
	b := base{
		db:           db,
		engine:       engine,
		locker:       opts.Locker,
		lockTTL:      opts.LockTTL,
		log:          zerolog.Nop(),
		thumbs:       opts.Thumbnails,
		passwordCost: opts.PasswordCost,
	}
	if b.locker == nil {
		b.locker = NoopLocker{}
	}
	if b.lockTTL <= 0 {
		b.lockTTL = 30 * time.Second
	}
	if opts.Logger != nil {
		b.log = *opts.Logger
	}
	if b.passwordCost == 0 {
		b.passwordCost = auth.DefaultCost
	}
	return b
}

// removeThumbnails deletes objects of faculties removed by a committed
// transaction. Failures leave a stray object behind and are only logged.
func (b *base) removeThumbnails(ctx context.Context, urls []string) {
	if b.thumbs == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := b.thumbs.DeleteByURL(ctx, url); err != nil {
			b.log.Warn().Err(err).Str("url", url).Msg("failed to delete faculty thumbnail")
		}
	}
}

// codeInUse reports whether another row of model m already uses code
func codeInUse(db *gorm.DB, m any, code, exceptID string) (bool, error) {
	var n int64
	q := db.Model(m).Where("code = ?", code)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// facultyThumbnails maps faculty id to thumbnail for faculties whose column is in values
func facultyThumbnails(db *gorm.DB, column string, values []string) (map[string]string, error) {
	out := make(map[string]string)
	if len(values) == 0 {
		return out, nil
	}
	var rows []struct {
		ID           string
		ThumbnailURL string
	}
	err := db.Table("faculties").
		Select("id, thumbnail_url").
		Where(column+" IN ?", values).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.ThumbnailURL != "" {
			out[r.ID] = r.ThumbnailURL
		}
	}
	return out, nil
}

func paginate(page, limit int) (offset, size int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return (page - 1) * limit, limit
}
