package client

import (
	"context"
	"net/http"

	"github.com/2beens/workoutlog/internal/tracker"
)

func (c *Client) liveCall(ctx context.Context, method, path string, body any) (*tracker.Session, error) {
	var session tracker.Session
	if err := c.do(ctx, method, path, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) LiveStart(ctx context.Context, routineID int) (*tracker.Session, error) {
	return c.liveCall(ctx, http.MethodPost, "/api/live-workout", tracker.StartRequest{RoutineID: routineID})
}

func (c *Client) LiveGet(ctx context.Context) (*tracker.Session, error) {
	return c.liveCall(ctx, http.MethodGet, "/api/live-workout", nil)
}

func (c *Client) LiveDiscard(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/live-workout", nil, nil)
}

func (c *Client) LiveSetDraft(ctx context.Context, slot int, draft tracker.Draft) (*tracker.Session, error) {
	return c.liveCall(ctx, http.MethodPut, pathID("/api/live-workout/slots/%s", slot), draft)
}

func (c *Client) LiveFlush(ctx context.Context) (*tracker.Session, error) {
	return c.liveCall(ctx, http.MethodPost, "/api/live-workout/flush", nil)
}

func (c *Client) LiveNext(ctx context.Context) (*tracker.Session, error) {
	return c.liveCall(ctx, http.MethodPost, "/api/live-workout/next", nil)
}

func (c *Client) LivePrevious(ctx context.Context) (*tracker.Session, error) {
	return c.liveCall(ctx, http.MethodPost, "/api/live-workout/previous", nil)
}

func (c *Client) LiveSelect(ctx context.Context, index int) (*tracker.Session, error) {
	return c.liveCall(ctx, http.MethodPost, pathID("/api/live-workout/select/%s", index), nil)
}

func (c *Client) LiveFinish(ctx context.Context) (*tracker.Session, error) {
	return c.liveCall(ctx, http.MethodPost, "/api/live-workout/finish", nil)
}
