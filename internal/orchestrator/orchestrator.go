// Package orchestrator runs one generation cycle.
// Flow: idempotency gate → select token → market snapshot → painting context
// → image generation → artifact persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"doom-index/internal/apperr"
	"doom-index/internal/blob"
	"doom-index/internal/classify"
	"doom-index/internal/domain"
	"doom-index/internal/events"
	"doom-index/internal/gemini"
	"doom-index/internal/idhash"
	"doom-index/internal/imagegen"
	"doom-index/internal/observability"
	"doom-index/internal/storage"
)

// Status is the outcome of a run that did not fail.
type Status string

const (
	StatusGenerated Status = observability.StatusGenerated
	StatusSkipped   Status = observability.StatusSkipped
)

// Step names, used in logs and metrics.
const (
	StepCheckIdempotency = "check_idempotency"
	StepSelectToken      = "select_token"
	StepFetchMarketData  = "fetch_market_data"
	StepStoreSnapshot    = "store_snapshot"
	StepBuildContext     = "build_context"
	StepGenerateImage    = "generate_image"
	StepPersistArtifact  = "persist_artifact"
)

// Selector picks the cycle's token.
type Selector interface {
	Select(ctx context.Context, bucket, hourBucket string) (*domain.SelectedToken, error)
}

// MarketService provides and persists market snapshots.
type MarketService interface {
	FetchGlobalMarketData(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error)
	StoreMarketSnapshot(ctx context.Context, snap *domain.MarketSnapshot) error
	FindByHourBucket(ctx context.Context, hourBucket string) (*domain.MarketSnapshot, error)
	FetchBasketMarketCaps(ctx context.Context, ids []string) map[string]float64
}

// ImageService composes and generates the image.
type ImageService interface {
	Compose(pc domain.PaintingContext, caps map[string]float64, t time.Time) (*imagegen.Composition, error)
	Generate(ctx context.Context, c *imagegen.Composition) (*gemini.ImageResult, error)
}

// Lease guards a bucket against concurrent runs.
type Lease interface {
	Acquire(ctx context.Context, bucket, owner string) (bool, error)
	Release(ctx context.Context, bucket, owner string) error
}

// Enricher supplies category tags for tokens without any.
type Enricher interface {
	Categories(ctx context.Context, token domain.TokenCandidate) ([]string, error)
}

// Timeouts bounds storage and enrichment calls.
type Timeouts struct {
	Storage    time.Duration
	Enrichment time.Duration
}

// Options for creating Orchestrator.
type Options struct {
	// Required collaborators
	Selector  Selector
	Market    MarketService
	Images    ImageService
	Paintings storage.PaintingStore
	Blobs     blob.Store

	// Optional collaborators
	Lease    Lease
	Enricher Enricher
	Events   events.Publisher

	Granularity idhash.Granularity
	BasketIDs   []string
	Timeouts    Timeouts
	Logger      zerolog.Logger

	Now      func() time.Time
	NewRunID func() string
}

// Orchestrator coordinates one generation cycle.
type Orchestrator struct {
	opts Options
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Granularity == "" {
		opts.Granularity = idhash.GranularityHour
	}
	if opts.Events == nil {
		opts.Events = events.NoopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	opts.Logger = opts.Logger.With().Str("component", "orchestrator").Logger()
	return &Orchestrator{opts: opts}
}

// Result describes a run that did not fail.
type Result struct {
	Status        Status
	Reason        string // why a run was skipped
	RunID         string
	Bucket        string
	SelectedToken *domain.SelectedToken
	PaintingID    string
	ImageURL      string
	ParamsHash    string
	Seed          string
}

type run struct {
	id         string
	start      time.Time
	bucket     string
	hourBucket string
	step       string
	leased     bool
	logger     zerolog.Logger
}

// Run executes one cycle. Skips are results, not errors. Panics are
// recovered and returned as *apperr.InternalError. A failed run releases
// its lease.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	start := o.opts.Now().UTC()
	r := &run{
		id:         o.opts.NewRunID(),
		start:      start,
		bucket:     idhash.DedupBucket(start, o.opts.Granularity),
		hourBucket: idhash.HourBucket(start),
	}
	r.logger = o.opts.Logger.With().Str("run_id", r.id).Str("bucket", r.bucket).Logger()
	r.logger.Info().Str("hour_bucket", r.hourBucket).Msg("generation cycle started")

	res, err := o.runSafe(ctx, r)
	elapsed := time.Since(start)

	if err != nil {
		if r.leased {
			o.releaseLease(r)
		}
		observability.RecordCycle(observability.StatusFailed, elapsed.Seconds(), o.opts.Now().Unix())
		r.logger.Error().
			Err(err).
			Str("step", r.step).
			Str("error_kind", string(apperr.KindOf(err))).
			Dur("elapsed", elapsed).
			Msg("generation cycle failed")
		return nil, err
	}

	observability.RecordCycle(string(res.Status), elapsed.Seconds(), o.opts.Now().Unix())
	ev := r.logger.Info().Str("status", string(res.Status)).Dur("elapsed", elapsed)
	if res.Status == StatusSkipped {
		ev = ev.Str("reason", res.Reason)
	} else {
		ev = ev.Str("painting_id", res.PaintingID).Str("token_id", res.SelectedToken.ID)
	}
	ev.Msg("generation cycle finished")
	return res, nil
}

func (o *Orchestrator) runSafe(ctx context.Context, r *run) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = apperr.Internal(fmt.Sprintf("panic in step %s: %v", r.step, p), nil)
		}
	}()
	return o.run(ctx, r)
}

func (o *Orchestrator) run(ctx context.Context, r *run) (*Result, error) {
	// Step 1: idempotency gate
	var reason string
	if err := o.step(r, StepCheckIdempotency, func() (err error) {
		reason, err = o.checkIdempotency(ctx, r)
		return err
	}); err != nil {
		return nil, err
	}
	if reason != "" {
		return o.skipped(r, reason), nil
	}

	// Step 2: token selection
	var selected *domain.SelectedToken
	if err := o.step(r, StepSelectToken, func() (err error) {
		selected, err = o.opts.Selector.Select(ctx, r.bucket, r.hourBucket)
		return err
	}); err != nil {
		return nil, err
	}

	// Step 3: market snapshot
	var snap *domain.MarketSnapshot
	if err := o.step(r, StepFetchMarketData, func() (err error) {
		snap, err = o.opts.Market.FetchGlobalMarketData(ctx, r.hourBucket)
		return err
	}); err != nil {
		return nil, err
	}

	// Step 4: persist snapshot
	if err := o.step(r, StepStoreSnapshot, func() error {
		return o.opts.Market.StoreMarketSnapshot(ctx, snap)
	}); err != nil {
		return nil, err
	}

	// Step 5: painting context and prompt
	var comp *imagegen.Composition
	if err := o.step(r, StepBuildContext, func() (err error) {
		comp, err = o.buildComposition(ctx, r, snap, selected)
		return err
	}); err != nil {
		return nil, err
	}

	// Step 6: single provider call
	var img *gemini.ImageResult
	if err := o.step(r, StepGenerateImage, func() (err error) {
		img, err = o.opts.Images.Generate(ctx, comp)
		return err
	}); err != nil {
		return nil, err
	}
	observability.RecordImageBytes(len(img.Bytes))

	// Step 7: blob + row
	var painting *domain.Painting
	var lost string
	if err := o.step(r, StepPersistArtifact, func() (err error) {
		painting, lost, err = o.persist(ctx, r, selected, comp, img)
		return err
	}); err != nil {
		return nil, err
	}
	if lost != "" {
		return o.skipped(r, lost), nil
	}

	o.publish(ctx, r, painting)

	return &Result{
		Status:        StatusGenerated,
		RunID:         r.id,
		Bucket:        r.bucket,
		SelectedToken: selected,
		PaintingID:    painting.ID,
		ImageURL:      painting.ImageURL,
		ParamsHash:    painting.ParamsHash,
		Seed:          painting.Seed,
	}, nil
}

func (o *Orchestrator) step(r *run, name string, fn func() error) error {
	r.step = name
	start := time.Now()
	err := fn()
	kind := ""
	if err != nil {
		kind = string(apperr.KindOf(err))
	}
	observability.RecordStep(name, time.Since(start).Seconds(), kind)
	r.logger.Debug().Str("step", name).Dur("elapsed", time.Since(start)).Bool("ok", err == nil).Msg("step finished")
	return err
}

// checkIdempotency returns a non-empty skip reason when the bucket is done
// or claimed.
func (o *Orchestrator) checkIdempotency(ctx context.Context, r *run) (string, error) {
	sctx, cancel := o.storageCtx(ctx)
	defer cancel()

	_, err := o.opts.Paintings.GetByBucket(sctx, r.bucket)
	switch {
	case err == nil:
		return "artifact exists for bucket", nil
	case !errors.Is(err, storage.ErrNotFound):
		return "", apperr.Storage("get", r.bucket, "check painting bucket", err)
	}

	if o.opts.Granularity == idhash.GranularityHour {
		snap, err := o.opts.Market.FindByHourBucket(ctx, r.hourBucket)
		if err != nil {
			return "", err
		}
		if snap != nil {
			return "snapshot exists for hour bucket", nil
		}
	}

	if o.opts.Lease != nil {
		ok, err := o.opts.Lease.Acquire(ctx, r.bucket, r.id)
		if err != nil {
			// The unique bucket constraint still guards the row.
			r.logger.Warn().Err(err).Msg("bucket lease unavailable, continuing without it")
			return "", nil
		}
		if !ok {
			return "bucket lease held by another run", nil
		}
		r.leased = true
	}
	return "", nil
}

func (o *Orchestrator) buildComposition(ctx context.Context, r *run, snap *domain.MarketSnapshot, selected *domain.SelectedToken) (*imagegen.Composition, error) {
	var extra []string
	if o.opts.Enricher != nil && len(selected.Categories) == 0 {
		ectx := ctx
		if o.opts.Timeouts.Enrichment > 0 {
			var cancel context.CancelFunc
			ectx, cancel = context.WithTimeout(ctx, o.opts.Timeouts.Enrichment)
			defer cancel()
		}
		tags, err := o.opts.Enricher.Categories(ectx, selected.TokenCandidate)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("token_id", selected.ID).
				Str("error_kind", string(apperr.KindOf(err))).
				Msg("token enrichment failed, continuing without tags")
		} else {
			extra = tags
		}
	}

	pc := classify.Build(*snap, *selected, extra...)
	caps := o.opts.Market.FetchBasketMarketCaps(ctx, o.opts.BasketIDs)

	comp, err := o.opts.Images.Compose(pc, caps, r.start)
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Str("token_id", selected.ID).
		Str("climate", string(pc.Climate)).
		Str("archetype", string(pc.Archetype)).
		Str("composition", string(pc.Composition)).
		Str("palette", string(pc.Palette)).
		Str("params_hash", comp.ParamsHash).
		Str("seed", comp.Seed).
		Msg("painting context built")
	return comp, nil
}

// persist writes the blob, then the row. A non-empty skip reason means a
// concurrent run already owns the object or the row; nothing of theirs is
// touched.
func (o *Orchestrator) persist(ctx context.Context, r *run, selected *domain.SelectedToken, comp *imagegen.Composition, img *gemini.ImageResult) (*domain.Painting, string, error) {
	id := idhash.PaintingID(comp.Filename)
	key := idhash.ObjectKey(r.start, id)

	sctx, cancel := o.storageCtx(ctx)
	defer cancel()

	mime := img.MIMEType
	if mime == "" {
		mime = gemini.MIMEType(comp.Format)
	}
	url, err := o.opts.Blobs.Put(sctx, key, img.Bytes, mime)
	if err != nil {
		if errors.Is(err, blob.ErrExists) {
			r.logger.Warn().Str("painting_id", id).Str("object_key", key).Msg("image object exists, concurrent run won")
			return nil, "artifact written by a concurrent run", nil
		}
		if apperr.KindOf(err) == apperr.KindStorage {
			return nil, "", err
		}
		return nil, "", apperr.Storage("put", key, "store image", err)
	}

	p := &domain.Painting{
		ID:           id,
		Timestamp:    r.start.Format(time.RFC3339),
		TsUnix:       r.start.Unix(),
		MinuteBucket: comp.MinuteBucket,
		HourBucket:   r.hourBucket,
		Bucket:       r.bucket,
		TokenID:      selected.ID,
		ParamsHash:   comp.ParamsHash,
		Seed:         comp.Seed,
		ObjectKey:    key,
		ImageURL:     url,
		FileSize:     int64(len(img.Bytes)),
		VisualParams: comp.ParamsJSON,
		Prompt:       comp.Prompt,
		Negative:     comp.Negative,
		CreatedAt:    o.opts.Now().Unix(),
	}

	if err := o.opts.Paintings.Insert(sctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			r.logger.Warn().Str("painting_id", id).Str("object_key", key).Msg("painting row exists, concurrent run won")
			return nil, "artifact inserted by a concurrent run", nil
		}
		r.logger.Error().Err(err).Str("object_key", key).Msg("painting row insert failed, blob left orphaned")
		return nil, "", apperr.Storage("insert", id, "insert painting", err)
	}
	return p, "", nil
}

func (o *Orchestrator) publish(ctx context.Context, r *run, p *domain.Painting) {
	err := o.opts.Events.Publish(ctx, events.PaintingGenerated{
		Type:       events.TypePaintingGenerated,
		RunID:      r.id,
		PaintingID: p.ID,
		Bucket:     p.Bucket,
		TokenID:    p.TokenID,
		ImageURL:   p.ImageURL,
		ParamsHash: p.ParamsHash,
		Seed:       p.Seed,
		TsUnix:     p.TsUnix,
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("publish generation event failed")
	}
}

func (o *Orchestrator) skipped(r *run, reason string) *Result {
	return &Result{Status: StatusSkipped, Reason: reason, RunID: r.id, Bucket: r.bucket}
}

func (o *Orchestrator) releaseLease(r *run) {
	ctx, cancel := o.storageCtx(context.Background())
	defer cancel()
	if err := o.opts.Lease.Release(ctx, r.bucket, r.id); err != nil {
		r.logger.Warn().Err(err).Msg("bucket lease release failed")
	}
}

func (o *Orchestrator) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.Timeouts.Storage <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.opts.Timeouts.Storage)
}
