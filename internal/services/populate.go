package services

import (
	"context"
	"fmt"

	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/store"
)

// userSummaries loads the public projection of every referenced user.
// Users that no longer exist are absent from the map.
func userSummaries(ctx context.Context, s store.Store, ids []string) (map[string]models.UserSummary, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	users, err := s.GetUsersByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	out := make(map[string]models.UserSummary, len(users))
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func summaryRef(users map[string]models.UserSummary, id string) *models.UserSummary {
	if u, ok := users[id]; ok {
		return &u
	}
	return nil
}

func noteViews(ctx context.Context, s store.Store, notes []models.Note) ([]models.NoteView, error) {
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.CreatedBy
	}
	users, err := userSummaries(ctx, s, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.NoteView, len(notes))
	for i, n := range notes {
		views[i] = models.NoteView{
			ID:        n.ID,
			Content:   n.Content,
			CreatedBy: summaryRef(users, n.CreatedBy),
			Task:      n.Task,
			CreatedAt: n.CreatedAt,
		}
	}
	return views, nil
}
