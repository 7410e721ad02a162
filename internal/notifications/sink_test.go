package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"discussify/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	created []*models.Notification
	err     error
}

func (s *stubStore) Create(_ context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, n)
	return nil
}

func TestSink_EmitPersistsAndPublishes(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	store := &stubStore{}
	sink := NewSink(store, NewNotifier(rdb))

	sub := rdb.Subscribe(context.Background(), UserChannel(3))
	defer func() { _ = sub.Close() }()
	_, err = sub.Receive(context.Background())
	require.NoError(t, err)

	n := &models.Notification{
		UserID:  3,
		Type:    models.NotificationTypeWelcome,
		Title:   "Welcome to Go Developers!",
		Message: "You are now a member.",
	}
	require.NoError(t, sink.Emit(context.Background(), n))
	require.Len(t, store.created, 1)

	select {
	case msg := <-sub.Channel():
		var ev struct {
			EventID string               `json:"event_id"`
			Type    string               `json:"type"`
			Payload *models.Notification `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.NotEmpty(t, ev.EventID)
		assert.Equal(t, "notification", ev.Type)
		assert.Equal(t, uint(3), ev.Payload.UserID)
		assert.Equal(t, models.NotificationTypeWelcome, ev.Payload.Type)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestSink_EmitReturnsStoreError(t *testing.T) {
	wantErr := errors.New("db down")
	sink := NewSink(&stubStore{err: wantErr}, NewNotifier(nil))

	err := sink.Emit(context.Background(), &models.Notification{UserID: 1})
	assert.ErrorIs(t, err, wantErr)
}

func TestSink_EmitSurvivesNilNotifier(t *testing.T) {
	store := &stubStore{}
	sink := NewSink(store, nil)

	require.NoError(t, sink.Emit(context.Background(), &models.Notification{UserID: 1}))
	assert.Len(t, store.created, 1)
}
