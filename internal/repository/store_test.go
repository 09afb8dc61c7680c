package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestStoreUnreachable(t *testing.T) {
	s := NewStore("mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=100", "clipsify", 500*time.Millisecond, 1, zap.NewNop())
	_, err := s.Collection(context.Background(), "images")
	assert.Error(t, err)
	assert.Nil(t, s.client, "a failed dial is not cached")
	assert.NoError(t, s.Disconnect(context.Background()))
}
