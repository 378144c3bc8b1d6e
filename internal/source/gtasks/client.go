// Package gtasks implements the to-do list facade on top of the Google Tasks
// API, for households that keep chore lists in Google Tasks instead of Home
// Assistant.
package gtasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/source"
)

const (
	pageSize   = 100
	apiTimeout = 5 * time.Second

	tasksScope = "https://www.googleapis.com/auth/tasks"
)

// Client implements source.TaskLists using the Google Tasks API. List ids are
// Google task list ids.
type Client struct {
	svc    *tasks.Service
	logger *slog.Logger
}

// New creates a Client from an OAuth client secret file and a stored token
// file. The token source refreshes automatically.
func New(ctx context.Context, clientPath, tokenPath string, logger *slog.Logger) (*Client, error) {
	clientJSON, err := os.ReadFile(clientPath)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client file: %w", err)
	}

	tokenData, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create tasks service: %w", err)
	}
	return &Client{svc: svc, logger: logger}, nil
}

// NewWithHTTPClient creates a Client over a custom HTTP client, used in tests.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, logger: logger}, nil
}

// Items returns all incomplete and completed tasks of one list.
func (c *Client) Items(ctx context.Context, listID string) ([]model.ChoreTask, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	var out []model.ChoreTask
	err := c.svc.Tasks.List(listID).
		ShowCompleted(true).
		ShowHidden(true).
		MaxResults(pageSize).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				status := model.StatusPending
				if t.Status == "completed" {
					status = model.StatusCompleted
				}
				out = append(out, model.ChoreTask{
					UID:    t.Id,
					Label:  t.Title,
					ListID: listID,
					Status: status,
				})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w: %w", listID, source.ErrListUnavailable, err)
	}
	return out, nil
}

// UpdateStatus patches one task's status. Google Tasks uses "needsAction" and
// "completed"; clearing a completion also clears the Completed timestamp.
func (c *Client) UpdateStatus(ctx context.Context, listID, itemUID string, status model.TaskStatus) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	patch := &tasks.Task{Id: itemUID}
	if status == model.StatusCompleted {
		patch.Status = "completed"
	} else {
		patch.Status = "needsAction"
		patch.ForceSendFields = []string{"Completed"}
	}

	if _, err := c.svc.Tasks.Patch(listID, itemUID, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s on %s: %w: %w", itemUID, listID, source.ErrUpdateRejected, err)
	}
	return nil
}

// AddItem inserts a new pending task at the top of the list.
func (c *Client) AddItem(ctx context.Context, listID, label string) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	if _, err := c.svc.Tasks.Insert(listID, &tasks.Task{Title: label}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add item to %s: %w: %w", listID, source.ErrUpdateRejected, err)
	}
	return nil
}
