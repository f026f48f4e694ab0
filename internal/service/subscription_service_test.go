package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type mockSubscriptionRepo struct {
	bySchool map[string]*models.Subscription
	upserted *models.Subscription
}

func (m *mockSubscriptionRepo) FindBySchool(ctx context.Context, schoolID string) (*models.Subscription, error) {
	if sub, ok := m.bySchool[schoolID]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubscriptionRepo) Upsert(ctx context.Context, sub *models.Subscription) error {
	m.upserted = sub
	return nil
}

func TestCheckAccessSkippedWhenEnforcementOff(t *testing.T) {
	svc := NewSubscriptionService(&mockSubscriptionRepo{}, false, nil, nil)
	assert.NoError(t, svc.CheckAccess(context.Background(), "school-1"))
}

func TestCheckAccessRejectsMissingSubscription(t *testing.T) {
	svc := NewSubscriptionService(&mockSubscriptionRepo{}, true, nil, nil)

	err := svc.CheckAccess(context.Background(), "school-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubscriptionExpired.Code, appErrors.FromError(err).Code)
}

func TestCheckAccessRejectsExpiredSubscription(t *testing.T) {
	repo := &mockSubscriptionRepo{bySchool: map[string]*models.Subscription{
		"school-1": {SchoolID: "school-1", Plan: models.SubscriptionPlanStandard, Active: true, ExpiresAt: time.Now().UTC().Add(-time.Hour)},
	}}
	svc := NewSubscriptionService(repo, true, nil, nil)

	err := svc.CheckAccess(context.Background(), "school-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubscriptionExpired.Code, appErrors.FromError(err).Code)
}

func TestCheckAccessAllowsActiveSubscription(t *testing.T) {
	repo := &mockSubscriptionRepo{bySchool: map[string]*models.Subscription{
		"school-1": {SchoolID: "school-1", Plan: models.SubscriptionPlanStandard, Active: true, ExpiresAt: time.Now().UTC().Add(24 * time.Hour)},
	}}
	svc := NewSubscriptionService(repo, true, nil, nil)

	assert.NoError(t, svc.CheckAccess(context.Background(), "school-1"))
}

func TestActivateStoresPlan(t *testing.T) {
	repo := &mockSubscriptionRepo{}
	svc := NewSubscriptionService(repo, true, nil, nil)

	expires := time.Now().UTC().Add(365 * 24 * time.Hour)
	sub, err := svc.Activate(context.Background(), "school-1", ActivateSubscriptionRequest{
		Plan:      models.SubscriptionPlanPremium,
		ExpiresAt: expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "school-1", sub.SchoolID)
	assert.True(t, sub.Active)
	assert.NotEmpty(t, sub.ID)
	require.NotNil(t, repo.upserted)
	assert.Equal(t, models.SubscriptionPlanPremium, repo.upserted.Plan)
}

func TestActivateRejectsPastExpiry(t *testing.T) {
	svc := NewSubscriptionService(&mockSubscriptionRepo{}, true, nil, nil)

	_, err := svc.Activate(context.Background(), "school-1", ActivateSubscriptionRequest{
		Plan:      models.SubscriptionPlanStandard,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
