package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/forgestack/forgestack/app/models"
	"github.com/forgestack/forgestack/app/repository"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultBatchSize    = 100
)

// Enqueuer submits a due delivery attempt to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload map[string]interface{}) (string, error)
}

// Dispatcher periodically scans for pending deliveries whose NextAttemptAt
// has passed and hands them to the queue one attempt at a time.
type Dispatcher struct {
	deliveries repository.WebhookDeliveryRepository
	endpoints  repository.WebhookEndpointRepository
	enqueuer   Enqueuer
	interval   time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewDispatcher creates a delivery dispatcher. A zero interval selects the
// default.
func NewDispatcher(deliveries repository.WebhookDeliveryRepository, endpoints repository.WebhookEndpointRepository, enqueuer Enqueuer, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Dispatcher{
		deliveries: deliveries,
		endpoints:  endpoints,
		enqueuer:   enqueuer,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the polling loop.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.wg.Add(1)
	go d.loop()
	log.Infof("[Delivery] dispatcher started (interval=%s)", d.interval)
}

// Stop halts the polling loop and waits for it to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	close(d.stopCh)
	d.wg.Wait()
	log.Info("[Delivery] dispatcher stopped")
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.DispatchDue(context.Background())
		}
	}
}

// DispatchDue enqueues one attempt for every due pending delivery.
func (d *Dispatcher) DispatchDue(ctx context.Context) {
	due, err := d.deliveries.FindDue(time.Now(), defaultBatchSize)
	if err != nil {
		log.Errorf("[Delivery] failed to load due deliveries: %v", err)
		return
	}
	for i := range due {
		payload := map[string]interface{}{"delivery_id": due[i].ID}
		if _, err := d.enqueuer.Enqueue(ctx, payload); err != nil {
			log.Errorf("[Delivery] failed to enqueue delivery %d: %v", due[i].ID, err)
			continue
		}
		// Lease: push the next-attempt marker past the poll interval so the
		// delivery is not re-dispatched while the queued attempt runs.
		lease := time.Now().Add(2 * d.interval)
		if err := d.deliveries.RecordAttempt(due[i].ID, due[i].AttemptNumber, due[i].ResponseStatus, due[i].ResponseBody, due[i].Error, lease); err != nil {
			log.Errorf("[Delivery] failed to lease delivery %d: %v", due[i].ID, err)
		}
	}
	if len(due) > 0 {
		log.Infof("[Delivery] dispatched %d due deliveries", len(due))
	}
}

// FanOut creates pending deliveries for every enabled endpoint of the org
// subscribed to the event type. Used by provider handlers after tenant
// resolution.
func (d *Dispatcher) FanOut(ctx context.Context, orgID uint, eventType, eventID, payloadJSON string) (int, error) {
	_ = ctx
	endpoints, err := d.endpoints.ListEnabledForEvent(orgID, eventType)
	if err != nil {
		return 0, err
	}
	created := 0
	for i := range endpoints {
		dlv := &models.WebhookDelivery{
			EndpointID:  endpoints[i].ID,
			EventType:   eventType,
			EventID:     eventID,
			PayloadJSON: payloadJSON,
			Status:      models.DeliveryStatusPending,
			// First attempt is immediate; the dispatcher picks it up on
			// the next poll.
			NextAttemptAt: time.Now(),
		}
		if err := d.deliveries.Create(dlv); err != nil {
			log.Errorf("[Delivery] failed to create delivery for endpoint %d: %v", endpoints[i].ID, err)
			continue
		}
		created++
	}
	return created, nil
}
