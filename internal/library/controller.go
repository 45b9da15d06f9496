package library

import (
	"context"
	"log/slog"

	"github.com/null000O/StatBuddy/internal/models"
	"github.com/null000O/StatBuddy/internal/signal"
)

// Controller applies library mutations and keeps the notification surface
// in step with them by publishing commands.
type Controller struct {
	lib *Library
	bus signal.Publisher
}

func NewController(lib *Library, bus signal.Publisher) *Controller {
	return &Controller{lib: lib, bus: bus}
}

func (c *Controller) Library() *Library { return c.lib }

// Resume restarts the notification after a process restart if it was
// showing when state was last saved.
func (c *Controller) Resume(ctx context.Context) error {
	snap := c.lib.Snapshot()
	if !snap.NotificationActive {
		return nil
	}
	slog.Info("Resuming notification", "image", snap.ActiveImage)
	return c.bus.Publish(ctx, signal.Start(snap.ActiveImage))
}

func (c *Controller) AddImage(ctx context.Context, ref models.Locator) error {
	return c.lib.Add(ctx, ref)
}

// ReplaceImage swaps from for to. If that moved the active pointer while the
// notification is showing, the surface is restarted on the new image.
func (c *Controller) ReplaceImage(ctx context.Context, from, to models.Locator) (ReplaceResult, error) {
	result, err := c.lib.Replace(ctx, from, to)
	if err != nil {
		return result, err
	}
	if result.ActiveChanged && c.lib.Snapshot().NotificationActive {
		if err := c.bus.Publish(ctx, signal.Start(to)); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (c *Controller) RemoveImage(ctx context.Context, ref models.Locator) bool {
	return c.lib.Remove(ctx, ref)
}

// SetActiveImage changes the active image and refreshes a showing
// notification.
func (c *Controller) SetActiveImage(ctx context.Context, ref models.Locator) error {
	if err := c.lib.SetActive(ctx, ref); err != nil {
		return err
	}
	if c.lib.Snapshot().NotificationActive {
		return c.bus.Publish(ctx, signal.Start(ref))
	}
	return nil
}

// SetNotificationActive records the flag and sends START with the active
// image, or STOP.
func (c *Controller) SetNotificationActive(ctx context.Context, active bool) error {
	c.lib.SetNotificationActive(ctx, active)
	if !active {
		return c.bus.Publish(ctx, signal.Stop())
	}
	return c.bus.Publish(ctx, signal.Start(c.lib.Snapshot().ActiveImage))
}
