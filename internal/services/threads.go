package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/shared"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 5
)

// ThreadQuery filters the thread listing. Zero values fall back to the defaults.
type ThreadQuery struct {
	Page     int    `validate:"gte=0"`
	PageSize int    `validate:"gte=0,lte=100"`
	Search   string `validate:"max=200"`
	Type     string
	Status   string
}

func (q ThreadQuery) values() url.Values {
	page, size := q.Page, q.PageSize
	if page <= 0 {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(size))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	return v
}

// ThreadsAPI wraps the thread endpoints.
type ThreadsAPI struct {
	gw *Gateway
}

func NewThreadsAPI(gw *Gateway) *ThreadsAPI {
	return &ThreadsAPI{gw: gw}
}

// List returns one page of the signed-in user's threads.
func (t *ThreadsAPI) List(ctx context.Context, q ThreadQuery) (*models.ThreadsPage, error) {
	if err := validateRequest(q); err != nil {
		return nil, err
	}
	var page models.ThreadsPage
	if err := t.gw.Send(ctx, Request{Method: http.MethodGet, Path: "/threads", Query: q.values()}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Summary returns the dashboard statistics.
func (t *ThreadsAPI) Summary(ctx context.Context) (*models.Summary, error) {
	var summary models.Summary
	if err := t.gw.Send(ctx, Request{Method: http.MethodGet, Path: "/threads/summary"}, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Get returns a thread with its full content history.
func (t *ThreadsAPI) Get(ctx context.Context, threadID string) (*models.ThreadDetails, error) {
	if threadID == "" {
		return nil, fmt.Errorf("%w: thread id", shared.ErrMissingArgument)
	}
	var details models.ThreadDetails
	path := "/threads/" + url.PathEscape(threadID)
	if err := t.gw.Send(ctx, Request{Method: http.MethodGet, Path: path}, &details); err != nil {
		return nil, err
	}
	return &details, nil
}
