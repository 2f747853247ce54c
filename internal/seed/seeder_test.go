package seed

import (
	"context"
	"testing"

	"github.com/chirpsocial/backend/internal/database/dbtest"
	"github.com/chirpsocial/backend/internal/models"
	"github.com/chirpsocial/backend/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedLeavesCountersConsistent(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	s := NewSeeder(db)

	sum, err := s.Seed(ctx, TestOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Users)
	assert.Equal(t, 10, sum.Tweets)
	assert.Equal(t, 5, sum.Messages)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 5, users)

	// everything went through the services, so there is no drift to repair
	report, err := reconcile.Run(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, report.Total())

	require.NoError(t, s.Clean(ctx))
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}
