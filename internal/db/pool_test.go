package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnect_EmptyURL(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "")
	assert.Error(t, err)
}

func TestConnect_MalformedURL(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Connect(ctx, "://not-a-url")
	assert.Error(t, err)
}
