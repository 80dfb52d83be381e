package remote_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/gymcoding/invoice-web/remote"
)

func TestThrottledStore_Delegates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := remote.NewMockStore(ctrl)
	next.EXPECT().GetRecord(gomock.Any(), "r1").Return(remote.Record{ID: "r1"}, nil)
	next.EXPECT().
		QueryDataSource(gomock.Any(), gomock.Any()).
		Return(remote.QueryResult{HasMore: true, NextCursor: "c"}, nil)

	store := remote.NewThrottledStore(next, 0, 1)

	rec, err := store.GetRecord(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)

	res, err := store.QueryDataSource(context.Background(), remote.Query{DataSourceID: "ds"})
	require.NoError(t, err)
	assert.True(t, res.HasMore)
	assert.Equal(t, "c", res.NextCursor)
}

func TestThrottledStore_CancelledWait(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := remote.NewMockStore(ctrl)
	next.EXPECT().GetRecord(gomock.Any(), gomock.Any()).Return(remote.Record{}, nil).Times(1)

	// One token per hour: the first call consumes the burst, the second must wait.
	store := remote.NewThrottledStore(next, 1.0/3600, 1)

	_, err := store.GetRecord(context.Background(), "r1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.GetRecord(ctx, "r2")
	require.Error(t, err)
}
