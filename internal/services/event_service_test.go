package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/services"
	"github.com/isdelr/uptask-be/internal/websocket"
)

func TestRecordPersistsAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	f := newDomainFixture(t)
	task := f.createTask(t, "A")

	events, err := f.events.GetRecentEvents(ctx, f.project.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, services.EventTaskCreate, events[0].Type, "newest first")
	assert.Equal(t, services.EventTeamAdd, events[1].Type)
	assert.Equal(t, f.manager.ID, events[0].UserID)

	require.Equal(t, 2, f.hub.Count(f.project.ID))
	var msg struct {
		Action  string       `json:"action"`
		Payload models.Event `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(f.hub.Messages[f.project.ID][1], &msg))
	assert.Equal(t, websocket.ActionActivity, msg.Action)
	assert.Equal(t, events[0].ID, msg.Payload.ID)
	assert.Contains(t, msg.Payload.Message, task.TaskName)
}

func TestGetRecentEventsLimit(t *testing.T) {
	ctx := context.Background()
	f := newDomainFixture(t)
	for range 3 {
		f.events.Record(ctx, f.project.ID, f.manager.ID, services.EventProjectUpdate, "update")
	}

	events, err := f.events.GetRecentEvents(ctx, f.project.ID, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = f.events.GetRecentEvents(ctx, f.project.ID, 1000)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}
