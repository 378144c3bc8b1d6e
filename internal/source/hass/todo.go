package hass

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/source"
)

type wireTodoItem struct {
	UID     string `json:"uid"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

// Items lists a to-do entity's items via the todo/item/list WebSocket
// command. Failures wrap source.ErrListUnavailable.
func (c *Client) Items(ctx context.Context, listID string) ([]model.ChoreTask, error) {
	result, err := c.roundTrip(ctx, map[string]any{
		"type":      "todo/item/list",
		"entity_id": listID,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w: %w", listID, source.ErrListUnavailable, err)
	}

	var wire struct {
		Items []wireTodoItem `json:"items"`
	}
	if err := json.Unmarshal(result, &wire); err != nil {
		return nil, fmt.Errorf("list %s: %w: decode items: %w", listID, source.ErrListUnavailable, err)
	}

	tasks := make([]model.ChoreTask, 0, len(wire.Items))
	for _, it := range wire.Items {
		status := model.StatusPending
		if it.Status == "completed" {
			status = model.StatusCompleted
		}
		tasks = append(tasks, model.ChoreTask{
			UID:    it.UID,
			Label:  it.Summary,
			ListID: listID,
			Status: status,
		})
	}
	return tasks, nil
}

// UpdateStatus flips one item's status through the todo.update_item service.
// Failures wrap source.ErrUpdateRejected.
func (c *Client) UpdateStatus(ctx context.Context, listID, itemUID string, status model.TaskStatus) error {
	wireStatus := "needs_action"
	if status == model.StatusCompleted {
		wireStatus = "completed"
	}

	_, err := c.roundTrip(ctx, map[string]any{
		"type":    "call_service",
		"domain":  "todo",
		"service": "update_item",
		"service_data": map[string]any{
			"item":   itemUID,
			"status": wireStatus,
		},
		"target": map[string]any{"entity_id": listID},
	})
	if err != nil {
		return fmt.Errorf("update %s on %s: %w: %w", itemUID, listID, source.ErrUpdateRejected, err)
	}
	return nil
}

// AddItem appends a pending item through the todo.add_item service.
func (c *Client) AddItem(ctx context.Context, listID, label string) error {
	_, err := c.roundTrip(ctx, map[string]any{
		"type":    "call_service",
		"domain":  "todo",
		"service": "add_item",
		"service_data": map[string]any{
			"item": label,
		},
		"target": map[string]any{"entity_id": listID},
	})
	if err != nil {
		return fmt.Errorf("add item to %s: %w: %w", listID, source.ErrUpdateRejected, err)
	}
	return nil
}

// roundTrip runs one WebSocket command, redialing once if the session is
// stale.
func (c *Client) roundTrip(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	ws, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	result, err := ws.command(ctx, payload)
	if err == nil {
		return result, nil
	}
	c.logger.Debug("websocket round trip failed, redialing", "error", err)
	c.dropSession()

	ws, dialErr := c.session(ctx)
	if dialErr != nil {
		return nil, err
	}
	return ws.command(ctx, clonePayload(payload))
}

// clonePayload copies the top level so the retry gets a fresh id slot.
func clonePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
