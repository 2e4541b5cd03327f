package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/forgestack/forgestack/app/models"
)

type fakeOrgRepo struct {
	orgs map[string]*models.Organization
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: make(map[string]*models.Organization)}
}

func (r *fakeOrgRepo) Create(org *models.Organization) error {
	r.orgs[org.Slug] = org
	return nil
}

func (r *fakeOrgRepo) GetByID(id uint) (*models.Organization, error) {
	for _, org := range r.orgs {
		if org.ID == id {
			return org, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrgRepo) GetBySlug(slug string) (*models.Organization, error) {
	if org, ok := r.orgs[slug]; ok {
		return org, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrgRepo) GetByAPIKeyHash(hash string) (*models.Organization, error) {
	for _, org := range r.orgs {
		if org.APIKeyHash == hash {
			return org, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrgRepo) TouchAPIKeyUsage(_ uint, _ time.Time) error { return nil }

func (r *fakeOrgRepo) Update(org *models.Organization) error {
	r.orgs[org.Slug] = org
	return nil
}

type fakeFanOut struct {
	calls   int
	orgID   uint
	event   string
	created int
	err     error
}

func (f *fakeFanOut) FanOut(_ context.Context, orgID uint, eventType, _, _ string) (int, error) {
	f.calls++
	f.orgID = orgID
	f.event = eventType
	return f.created, f.err
}

func seedStripeEvent(t *testing.T, repo *fakeEventRepo, payload string) *models.IncomingWebhookEvent {
	t.Helper()
	_, stored, err := repo.CreateIfNotExists(&models.IncomingWebhookEvent{
		Provider:        ProviderStripe,
		ProviderEventID: "evt_77",
		EventType:       "invoice.paid",
		PayloadJSON:     payload,
		Verified:        true,
	})
	require.NoError(t, err)
	return stored
}

func TestStripeHandler_ResolvesOrgAndFansOut(t *testing.T) {
	orgs := newFakeOrgRepo()
	require.NoError(t, orgs.Create(&models.Organization{ID: 5, Slug: "acme", Plan: models.PlanPro}))
	events := newFakeEventRepo()
	fanout := &fakeFanOut{created: 2}
	handler := NewStripeHandler(orgs, events, fanout)

	stored := seedStripeEvent(t, events, `{"id":"evt_77","type":"invoice.paid","data":{"object":{"metadata":{"org":"acme"}}}}`)

	require.NoError(t, handler.HandleEvent(context.Background(), stored))
	assert.Equal(t, 1, fanout.calls)
	assert.Equal(t, uint(5), fanout.orgID)
	assert.Equal(t, "invoice.paid", fanout.event)
	require.NotNil(t, stored.OrgID)
	assert.Equal(t, uint(5), *stored.OrgID)
}

func TestStripeHandler_NoOrgMetadataIsNoOp(t *testing.T) {
	orgs := newFakeOrgRepo()
	events := newFakeEventRepo()
	fanout := &fakeFanOut{}
	handler := NewStripeHandler(orgs, events, fanout)

	stored := seedStripeEvent(t, events, `{"id":"evt_77","type":"invoice.paid","data":{"object":{}}}`)

	require.NoError(t, handler.HandleEvent(context.Background(), stored))
	assert.Zero(t, fanout.calls)
	assert.Nil(t, stored.OrgID)
}

func TestStripeHandler_UnknownOrgIsSkippedNotRetried(t *testing.T) {
	orgs := newFakeOrgRepo()
	events := newFakeEventRepo()
	fanout := &fakeFanOut{}
	handler := NewStripeHandler(orgs, events, fanout)

	stored := seedStripeEvent(t, events, `{"id":"evt_77","type":"invoice.paid","data":{"object":{"metadata":{"org":"ghost"}}}}`)

	require.NoError(t, handler.HandleEvent(context.Background(), stored))
	assert.Zero(t, fanout.calls)
}

func TestStripeHandler_UnparsablePayloadIsError(t *testing.T) {
	handler := NewStripeHandler(newFakeOrgRepo(), newFakeEventRepo(), &fakeFanOut{})

	err := handler.HandleEvent(context.Background(), &models.IncomingWebhookEvent{ID: 1, PayloadJSON: "not json"})
	assert.Error(t, err)
}
