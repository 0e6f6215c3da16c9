package main

import (
	"fmt"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/acquire"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/batch"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/capability"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/compress"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/config"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/dispatch"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/fileshare"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/gallery"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/metrics"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/native"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/scratch"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/urlscheme"
	"go.uber.org/zap"
)

// hostAdapters are the host capabilities the pipeline is built on.
type hostAdapters struct {
	Surface   photoshare.ShareSurface
	Opener    photoshare.URLOpener
	Sheet     photoshare.ShareSheet
	Confirmer photoshare.Confirmer
	Notifier  photoshare.Notifier
}

// pipeline owns every component of one share session.
type pipeline struct {
	profiler   *capability.Profiler
	dispatcher *dispatch.Dispatcher
	store      *db.LazyStore
	scratch    *scratch.Store
}

func newPipeline(cfg *config.Config, host hostAdapters, logger *zap.Logger, m *metrics.Metrics) (*pipeline, error) {
	rt := cfg.Runtime

	profiler := capability.New(rt, host.Surface,
		capability.WithLogger(logger.Named("capability")),
		capability.WithLimits(cfg.Capability.IOS.SizeLimits(), cfg.Capability.Default.SizeLimits()))

	links := urlscheme.New(host.Opener,
		urlscheme.WithLogger(logger.Named("urlscheme")),
		urlscheme.WithNotifier(host.Notifier),
		urlscheme.WithMobile(capability.IsMobile(rt.UserAgent, rt.ViewportWidth, rt.ViewportHeight)),
		urlscheme.WithFallbackDelay(cfg.Links.FallbackDelay.Std()),
		urlscheme.WithItemDelay(cfg.Links.ItemDelay.Std()))

	fetcher := acquire.New(
		acquire.WithLogger(logger.Named("acquire")),
		acquire.WithMetrics(m),
		acquire.WithTimeout(cfg.Acquire.Timeout.Std()),
		acquire.WithMaxBytes(int64(cfg.Acquire.MaxMB*capability.MB)))
	compressor := compress.New(
		compress.WithLogger(logger.Named("compress")),
		compress.WithMetrics(m),
		compress.WithLadder(cfg.CompressLadder()))
	preparer := fileshare.NewPreparer(fetcher, compressor,
		fileshare.WithPreparerLogger(logger.Named("prepare")),
		fileshare.WithPreparerMetrics(m),
		fileshare.WithBypassCache(cfg.Acquire.BypassCache))

	files := fileshare.New(host.Surface, preparer,
		fileshare.WithLogger(logger.Named("fileshare")),
		fileshare.WithNotifier(host.Notifier),
		fileshare.WithMetrics(m),
		fileshare.WithFallback(links))

	scratchStore, err := scratch.New(cfg.Native.ScratchDir, scratch.WithLogger(logger.Named("scratch")))
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch storage: %w", err)
	}

	// Only the gallery tier opens the store.
	store := db.NewLazy(cfg.Store.Type, cfg.Store.Path)

	opts := []dispatch.Option{
		dispatch.WithLogger(logger.Named("dispatch")),
		dispatch.WithNotifier(host.Notifier),
		dispatch.WithMetrics(m),
		dispatch.WithThresholds(cfg.Thresholds),
	}

	var batchSharer batch.Sharer = files
	if host.Sheet != nil {
		sheet := native.New(host.Sheet, preparer, scratchStore, rt,
			native.WithLogger(logger.Named("native")),
			native.WithNotifier(host.Notifier),
			native.WithCleanupDelays(cfg.Native.SingleCleanup.Std(), cfg.Native.MultiCleanup.Std()))
		opts = append(opts, dispatch.WithNative(sheet))
		if rt.NativeApp {
			batchSharer = sheet
		}
	}

	batches := batch.New(batchSharer, host.Confirmer,
		batch.WithLogger(logger.Named("batch")),
		batch.WithNotifier(host.Notifier),
		batch.WithSize(cfg.BatchSize),
		batch.WithFallback(links))

	galleries := gallery.New(store, links, rt.Origin,
		gallery.WithLogger(logger.Named("gallery")),
		gallery.WithNotifier(host.Notifier),
		gallery.WithOptions(cfg.Gallery.Options()))

	opts = append(opts, dispatch.WithBatches(batches), dispatch.WithGallery(galleries))

	return &pipeline{
		profiler:   profiler,
		dispatcher: dispatch.New(profiler, files, opts...),
		store:      store,
		scratch:    scratchStore,
	}, nil
}

// Close removes pending scratch files immediately and closes the store.
func (p *pipeline) Close() error {
	p.scratch.Flush()
	return p.store.Close()
}
