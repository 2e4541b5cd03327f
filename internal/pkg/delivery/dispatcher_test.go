package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgestack/forgestack/app/models"
)

type recordingEnqueuer struct {
	payloads []map[string]interface{}
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, payload map[string]interface{}) (string, error) {
	e.payloads = append(e.payloads, payload)
	return "job-1", nil
}

func TestFanOut_CreatesDeliveriesForSubscribedEndpoints(t *testing.T) {
	deliveries := newFakeDeliveryRepo()
	endpoints := newFakeEndpointRepo()

	subscribed := &models.WebhookEndpoint{OrgID: 1, URL: "https://a.example.com", Secret: "s", Enabled: true}
	require.NoError(t, subscribed.SetEvents([]string{"invoice.paid"}))
	require.NoError(t, endpoints.Create(subscribed))

	wildcard := &models.WebhookEndpoint{OrgID: 1, URL: "https://b.example.com", Secret: "s", Enabled: true}
	require.NoError(t, wildcard.SetEvents([]string{"*"}))
	require.NoError(t, endpoints.Create(wildcard))

	otherEvent := &models.WebhookEndpoint{OrgID: 1, URL: "https://c.example.com", Secret: "s", Enabled: true}
	require.NoError(t, otherEvent.SetEvents([]string{"customer.created"}))
	require.NoError(t, endpoints.Create(otherEvent))

	disabled := &models.WebhookEndpoint{OrgID: 1, URL: "https://d.example.com", Secret: "s", Enabled: false}
	require.NoError(t, disabled.SetEvents([]string{"*"}))
	require.NoError(t, endpoints.Create(disabled))

	otherOrg := &models.WebhookEndpoint{OrgID: 2, URL: "https://e.example.com", Secret: "s", Enabled: true}
	require.NoError(t, otherOrg.SetEvents([]string{"*"}))
	require.NoError(t, endpoints.Create(otherOrg))

	d := NewDispatcher(deliveries, endpoints, &recordingEnqueuer{}, time.Second)
	created, err := d.FanOut(context.Background(), 1, "invoice.paid", "evt_1", `{"id":"evt_1"}`)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	for _, dlv := range deliveries.deliveries {
		assert.Equal(t, models.DeliveryStatusPending, dlv.Status)
		assert.Equal(t, "invoice.paid", dlv.EventType)
		assert.Equal(t, "evt_1", dlv.EventID)
		assert.NotEqual(t, otherOrg.ID, dlv.EndpointID)
		assert.NotEqual(t, disabled.ID, dlv.EndpointID)
	}
}

func TestFanOut_NoSubscribersIsEmpty(t *testing.T) {
	deliveries := newFakeDeliveryRepo()
	endpoints := newFakeEndpointRepo()
	d := NewDispatcher(deliveries, endpoints, &recordingEnqueuer{}, time.Second)

	created, err := d.FanOut(context.Background(), 1, "invoice.paid", "evt_1", `{}`)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, deliveries.deliveries)
}

func TestDispatchDue_EnqueuesAndLeases(t *testing.T) {
	deliveries := newFakeDeliveryRepo()
	endpoints := newFakeEndpointRepo()
	endpoint := seedEndpoint(t, endpoints, "https://a.example.com")

	due := seedDelivery(t, deliveries, endpoint.ID)
	due.NextAttemptAt = time.Now().Add(-time.Second)

	future := seedDelivery(t, deliveries, endpoint.ID)
	future.NextAttemptAt = time.Now().Add(time.Hour)

	enqueuer := &recordingEnqueuer{}
	d := NewDispatcher(deliveries, endpoints, enqueuer, time.Second)
	d.DispatchDue(context.Background())

	require.Len(t, enqueuer.payloads, 1)
	assert.Equal(t, due.ID, enqueuer.payloads[0]["delivery_id"])

	// The lease pushes NextAttemptAt past the poll interval so a second poll
	// does not re-dispatch while the queued attempt is in flight.
	assert.True(t, due.NextAttemptAt.After(time.Now()))
	d.DispatchDue(context.Background())
	assert.Len(t, enqueuer.payloads, 1)
}

func TestDispatchDue_SkipsTerminalDeliveries(t *testing.T) {
	deliveries := newFakeDeliveryRepo()
	endpoints := newFakeEndpointRepo()
	endpoint := seedEndpoint(t, endpoints, "https://a.example.com")

	done := seedDelivery(t, deliveries, endpoint.ID)
	done.Status = models.DeliveryStatusDelivered
	done.NextAttemptAt = time.Now().Add(-time.Minute)

	enqueuer := &recordingEnqueuer{}
	d := NewDispatcher(deliveries, endpoints, enqueuer, time.Second)
	d.DispatchDue(context.Background())
	assert.Empty(t, enqueuer.payloads)
}
