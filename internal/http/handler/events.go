package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/http/dto"
	"avatarlab.app/studio/internal/http/middleware"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/service"
	"avatarlab.app/studio/internal/view"
)

const (
	streamBuffer    = 64
	streamHeartbeat = 30 * time.Second
	streamPageSize  = 100
)

// EventsHandler streams the caller's reconciled view over server-sent
// events. Each connection owns one ImageReconciler scoped to the filter in
// the query string, plus refetchers for folders and characters; the initial
// snapshot and every subsequent transition go out as SSE events.
type EventsHandler struct {
	images     service.ImageService
	folders    service.FolderService
	characters service.CharacterService
	bus        bus.Client
}

func NewEventsHandler(
	images service.ImageService,
	folders service.FolderService,
	characters service.CharacterService,
	busClient bus.Client,
) *EventsHandler {
	return &EventsHandler{
		images:     images,
		folders:    folders,
		characters: characters,
		bus:        busClient,
	}
}

type streamEvent struct {
	name string
	data any
}

// reconcilerLoader adapts ImageService to the loader the reconciler needs.
type reconcilerLoader struct {
	images service.ImageService
}

func (l reconcilerLoader) GetImage(ctx context.Context, userID, id int64) (*model.Image, error) {
	return l.images.Get(ctx, userID, id)
}

// Stream uses the same filter query parameters as the image list endpoint,
// so a client can load a page and then subscribe with identical parameters
// and the two will agree on membership.
func (h *EventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	filter, err := parseImageFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := make(chan streamEvent, streamBuffer)
	push := func(ev streamEvent) {
		select {
		case events <- ev:
		default:
			// A client this far behind will refetch on reconnect anyway.
			slog.WarnContext(ctx, "dropping realtime event for slow client",
				"user_id", user.ID, "event", ev.name)
		}
	}

	rec := view.NewImageReconciler(view.ImageReconcilerOptions{
		UserID: user.ID,
		Filter: filter,
		Loader: reconcilerLoader{images: h.images},
		OnTransition: func(t view.Transition) {
			push(transitionEvent(t))
		},
	})

	images, totalCount, err := h.images.List(ctx, user.ID, filter, streamPageSize, 0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load image snapshot", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load images"})
		return
	}
	rec.Reset(filter, images, totalCount)

	foldersRef := view.NewRefetcher(
		func(ctx context.Context) ([]model.Folder, error) {
			return h.folders.List(ctx, user.ID)
		},
		func(items []model.Folder) {
			push(streamEvent{name: "folders", data: dto.ToFolderResponses(items)})
		},
	)
	charactersRef := view.NewRefetcher(
		func(ctx context.Context) ([]model.Character, error) {
			return h.characters.List(ctx, user.ID)
		},
		func(items []model.Character) {
			push(streamEvent{name: "characters", data: dto.ToCharacterResponses(items)})
		},
	)
	if err := foldersRef.Reload(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to load folder snapshot", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load folders"})
		return
	}
	if err := charactersRef.Reload(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to load character snapshot", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load characters"})
		return
	}

	unsubImages := rec.Start(h.bus)
	defer unsubImages()
	unsubFolders := foldersRef.Start(h.bus, bus.ChannelFolders,
		bus.FolderCreated, bus.FolderUpdated, bus.FolderDeleted)
	defer unsubFolders()
	unsubCharacters := charactersRef.Start(h.bus, bus.ChannelCharacters,
		bus.CharacterCreated, bus.CharacterUpdated, bus.CharacterDeleted)
	defer unsubCharacters()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// The refetcher snapshots were already pushed through apply; the image
	// snapshot goes out first by being written before the loop drains events.
	c.SSEvent("snapshot", dto.ToListImagesResponse(images, totalCount))
	c.Writer.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			c.SSEvent(ev.name, ev.data)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}

func transitionEvent(t view.Transition) streamEvent {
	switch tr := t.(type) {
	case view.Insert:
		return streamEvent{name: "image_insert", data: gin.H{
			"image":       dto.ToImageResponse(&tr.Image),
			"total_count": tr.TotalCount,
		}}
	case view.Patch:
		return streamEvent{name: "image_patch", data: gin.H{
			"image": dto.ToImageResponse(&tr.Image),
		}}
	case view.Refresh:
		return streamEvent{name: "image_refresh", data: gin.H{
			"image": dto.ToImageResponse(&tr.Image),
		}}
	case view.Remove:
		return streamEvent{name: "image_remove", data: gin.H{
			"id":           strconv.FormatInt(tr.ID, 10),
			"total_count":  tr.TotalCount,
			"close_detail": tr.CloseDetail,
		}}
	default:
		return streamEvent{name: "unknown", data: gin.H{}}
	}
}
