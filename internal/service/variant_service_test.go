package service

import (
	"context"
	"errors"
	"testing"

	"imageAttach/internal/queue"
	"imageAttach/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVariantGenerate_OnlyMissing(t *testing.T) {
	store := new(MockStorage)
	svc := NewVariantService(store)
	data := pngBytes(t, 300, 200)

	store.On("Exists", mock.Anything, "a_thumb.webp").Return(true, nil)
	store.On("Exists", mock.Anything, "a_sm.webp").Return(false, nil)
	store.On("Exists", mock.Anything, "a_md.webp").Return(false, errors.New("timeout"))
	store.On("Exists", mock.Anything, "a_lg.webp").Return(true, nil)
	store.On("Get", mock.Anything, "a.png").Return(data, nil)
	store.On("Put", mock.Anything, "a_sm.webp", mock.Anything, "image/webp").Return("", nil)
	store.On("Put", mock.Anything, "a_md.webp", mock.Anything, "image/webp").Return("", nil)

	created, err := svc.Generate(context.Background(), "a.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"sm", "md"}, created)
	store.AssertExpectations(t)
}

func TestVariantGenerate_NothingMissing(t *testing.T) {
	store := new(MockStorage)
	svc := NewVariantService(store)

	store.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	created, err := svc.Generate(context.Background(), "a.png")
	require.NoError(t, err)
	assert.Empty(t, created)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestVariantGenerate_OriginalMissing(t *testing.T) {
	store := new(MockStorage)
	svc := NewVariantService(store)

	store.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
	store.On("Get", mock.Anything, "gone.png").Return(nil, storage.ErrObjectNotFound)

	_, err := svc.Generate(context.Background(), "gone.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOriginalMissing)
}

func TestVariantGenerate_PutFailure(t *testing.T) {
	store := new(MockStorage)
	svc := NewVariantService(store)

	store.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
	store.On("Get", mock.Anything, "a.png").Return(pngBytes(t, 50, 50), nil)
	store.On("Put", mock.Anything, "a_thumb.webp", mock.Anything, "image/webp").Return("", nil)
	store.On("Put", mock.Anything, "a_sm.webp", mock.Anything, "image/webp").Return("", errors.New("bucket full"))

	created, err := svc.Generate(context.Background(), "a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store sm variant")
	assert.Nil(t, created)
}

func TestInlineJobs_RunsInBackground(t *testing.T) {
	store := new(MockStorage)
	done := make(chan struct{})

	store.On("Exists", mock.Anything, mock.Anything).Return(true, nil).
		Run(func(mock.Arguments) {
			select {
			case <-done:
			default:
				close(done)
			}
		})

	jobs := NewInlineJobs(NewVariantService(store))
	require.NoError(t, jobs.EnqueueVariants(context.Background(), queue.VariantJob{ImageID: 1, Key: "a.png"}))
	<-done
}
