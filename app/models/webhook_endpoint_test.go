package models

import "testing"

func TestWebhookEndpointEventsRoundTrip(t *testing.T) {
	var endpoint WebhookEndpoint
	if err := endpoint.SetEvents([]string{"invoice.paid", "customer.created"}); err != nil {
		t.Fatalf("SetEvents returned error: %v", err)
	}
	events := endpoint.Events()
	if len(events) != 2 || events[0] != "invoice.paid" || events[1] != "customer.created" {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestWebhookEndpointSubscribesTo(t *testing.T) {
	tests := []struct {
		name   string
		events []string
		event  string
		want   bool
	}{
		{name: "exact match", events: []string{"invoice.paid"}, event: "invoice.paid", want: true},
		{name: "no match", events: []string{"invoice.paid"}, event: "customer.created", want: false},
		{name: "wildcard", events: []string{"*"}, event: "anything.at.all", want: true},
		{name: "whitespace in query", events: []string{"invoice.paid"}, event: " invoice.paid ", want: true},
		{name: "empty subscriptions", events: []string{}, event: "invoice.paid", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var endpoint WebhookEndpoint
			if err := endpoint.SetEvents(tt.events); err != nil {
				t.Fatalf("SetEvents returned error: %v", err)
			}
			if got := endpoint.SubscribesTo(tt.event); got != tt.want {
				t.Fatalf("SubscribesTo(%q) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestWebhookEndpointEventsBrokenJSON(t *testing.T) {
	endpoint := WebhookEndpoint{EventsJSON: "{not json"}
	if events := endpoint.Events(); events != nil {
		t.Fatalf("expected nil events for broken JSON, got %v", events)
	}
	if endpoint.SubscribesTo("invoice.paid") {
		t.Fatal("broken subscriptions must match nothing")
	}
}
