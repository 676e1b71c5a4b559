package view

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"avatarlab.app/studio/common/logger"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/model"
)

// ImageLoader fetches the full representation of an image when an event
// announces one the collection does not yet hold.
type ImageLoader interface {
	GetImage(ctx context.Context, userID, id int64) (*model.Image, error)
}

// ImageReconcilerOptions configures an ImageReconciler.
type ImageReconcilerOptions struct {
	UserID int64
	Filter Filter
	Loader ImageLoader
	// OnTransition receives every state transition the reconciler emits.
	// It is invoked with the reconciler lock held, so implementations must
	// not call back into the reconciler.
	OnTransition func(Transition)
}

// ImageReconciler keeps a filtered image collection consistent with the
// event stream without refetching it. Events are applied incrementally:
// membership is re-derived from the event's own fields against the current
// filter, and every change is emitted as a pure Transition.
//
// Events may arrive more than once and out of order, so every application
// is idempotent: a duplicate created is ignored via the id index, a deleted
// for an image never inserted is a no-op.
type ImageReconciler struct {
	userID int64
	loader ImageLoader
	emit   func(Transition)

	mu         sync.Mutex
	filter     Filter
	images     []model.Image
	index      map[int64]int
	totalCount int64
	detailID   *int64
}

func NewImageReconciler(opts ImageReconcilerOptions) *ImageReconciler {
	emit := opts.OnTransition
	if emit == nil {
		emit = func(Transition) {}
	}
	return &ImageReconciler{
		userID: opts.UserID,
		loader: opts.Loader,
		emit:   emit,
		filter: opts.Filter,
		index:  make(map[int64]int),
	}
}

// Reset replaces the collection with the result of an initial load, which
// must have been queried with the same filter.
func (r *ImageReconciler) Reset(filter Filter, images []model.Image, totalCount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.filter = filter
	r.images = append(r.images[:0], images...)
	r.totalCount = totalCount
	r.index = make(map[int64]int, len(images))
	for i, img := range images {
		r.index[img.ID] = i
	}
}

// Images returns a snapshot of the current collection.
func (r *ImageReconciler) Images() []model.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Image, len(r.images))
	copy(out, r.images)
	return out
}

// TotalCount returns the reconciled total across all pages, not just the
// loaded window.
func (r *ImageReconciler) TotalCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalCount
}

// OpenDetail records which image the detail view is showing, so a deletion
// of that image can emit a close instruction.
func (r *ImageReconciler) OpenDetail(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detailID = &id
}

// CloseDetail clears the open detail image.
func (r *ImageReconciler) CloseDetail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detailID = nil
}

// Start subscribes the reconciler to the images channel and returns an
// unsubscribe function.
func (r *ImageReconciler) Start(b bus.Client) func() {
	names := []bus.EventName{bus.ImageCreated, bus.ImageUpdated, bus.ImageMoved, bus.ImageDeleted}
	unsubs := make([]func(), 0, len(names))
	for _, name := range names {
		unsubs = append(unsubs, b.Subscribe(bus.ChannelImages, name, r.handle))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (r *ImageReconciler) handle(ctx context.Context, name bus.EventName, data []byte, ts time.Time) {
	ev, err := bus.ParseImageEvent(name, data, ts)
	if err != nil {
		slog.WarnContext(ctx, "dropping undecodable image event", "error", err, "event_name", name)
		return
	}
	r.Apply(ctx, ev)
}

// Apply reconciles one image event into the collection.
func (r *ImageReconciler) Apply(ctx context.Context, ev *bus.ImageEvent) {
	if ev.Image.UserID != r.userID {
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "studio.view",
		ImageID:   logger.Ptr(ev.Image.ID),
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case bus.KindCreated:
		r.applyCreated(ctx, ev.Image)
	case bus.KindUpdated:
		r.applyUpdated(ev.Image)
	case bus.KindMoved:
		r.applyMoved(ctx, ev.Image)
	case bus.KindDeleted:
		r.applyDeleted(ev.Image.ID)
	default:
		slog.WarnContext(ctx, "ignoring image event with unknown kind", "kind", ev.Kind)
	}
}

// applyCreated inserts a new image when it satisfies the filter and is not
// already present. Duplicate delivery hits the index and becomes a no-op.
func (r *ImageReconciler) applyCreated(ctx context.Context, p bus.ImagePayload) {
	if _, ok := r.index[p.ID]; ok {
		return
	}
	if !r.filter.Matches(payloadImage(p)) {
		return
	}

	img := r.load(ctx, p)
	if img == nil {
		return
	}
	r.insert(*img)
}

// applyUpdated patches flags in place. Flag changes never affect folder or
// character membership, so the filter is not re-evaluated here.
func (r *ImageReconciler) applyUpdated(p bus.ImagePayload) {
	i, ok := r.index[p.ID]
	if !ok {
		return
	}
	r.images[i].Favorite = p.Favorite
	r.images[i].NSFW = p.NSFW
	r.emit(Patch{Image: r.images[i]})
}

// applyMoved re-evaluates membership from the event's new folder id. The
// image may enter the view, leave it, or stay with its folder refreshed.
func (r *ImageReconciler) applyMoved(ctx context.Context, p bus.ImagePayload) {
	i, present := r.index[p.ID]
	matches := r.filter.Matches(payloadImage(p))

	switch {
	case present && !matches:
		r.remove(p.ID)
	case !present && matches:
		img := r.load(ctx, p)
		if img == nil {
			return
		}
		r.insert(*img)
	case present && matches:
		r.images[i].FolderID = p.FolderID
		r.emit(Refresh{Image: r.images[i]})
	}
}

func (r *ImageReconciler) applyDeleted(id int64) {
	if _, ok := r.index[id]; ok {
		r.remove(id)
		return
	}
	// Never saw the image (or out-of-order delivery), but the detail view
	// may still be showing it.
	if r.detailID != nil && *r.detailID == id {
		r.detailID = nil
		r.emit(Remove{ID: id, TotalCount: r.totalCount, CloseDetail: true})
	}
}

func (r *ImageReconciler) insert(img model.Image) {
	r.images = append([]model.Image{img}, r.images...)
	r.index = reindex(r.images)
	r.totalCount++
	r.emit(Insert{Image: img, TotalCount: r.totalCount})
}

func (r *ImageReconciler) remove(id int64) {
	i := r.index[id]
	r.images = append(r.images[:i], r.images[i+1:]...)
	r.index = reindex(r.images)
	r.totalCount--

	closeDetail := r.detailID != nil && *r.detailID == id
	if closeDetail {
		r.detailID = nil
	}
	r.emit(Remove{ID: id, TotalCount: r.totalCount, CloseDetail: closeDetail})
}

// load fetches the full image row. Loader failures are logged and the event
// skipped; the collection stays stale until the next refresh rather than
// surfacing an error to the presentation layer.
func (r *ImageReconciler) load(ctx context.Context, p bus.ImagePayload) *model.Image {
	img, err := r.loader.GetImage(ctx, r.userID, p.ID)
	if err != nil {
		slog.WarnContext(ctx, "failed to load image for reconciliation", "error", err)
		return nil
	}
	return img
}

func reindex(images []model.Image) map[int64]int {
	index := make(map[int64]int, len(images))
	for i, img := range images {
		index[img.ID] = i
	}
	return index
}

// payloadImage lifts an event payload into the model shape Filter evaluates.
func payloadImage(p bus.ImagePayload) model.Image {
	return model.Image{
		ID:          p.ID,
		UserID:      p.UserID,
		CharacterID: p.CharacterID,
		FolderID:    p.FolderID,
		Favorite:    p.Favorite,
		NSFW:        p.NSFW,
	}
}
