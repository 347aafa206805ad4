package services

import (
	"encoding/json"
	"sync"
	"testing"
)

func addClient(hub *Hub, c *Client) {
	hub.mutex.Lock()
	hub.clients[c] = true
	hub.mutex.Unlock()
}

func TestConcurrentBroadcastsEvictStalledClientOnce(t *testing.T) {
	hub := NewHub()
	// Unbuffered Send with no reader: every broadcast hits the
	// eviction path.
	stalled := &Client{ID: "d1", UserType: "driver", Send: make(chan []byte), Hub: hub}
	addClient(hub, stalled)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				hub.NotifyUser("d1", "ride_accepted", map[string]any{"rideId": "ride1"})
			} else {
				hub.NotifyDrivers("ride_request", map[string]any{"rideId": "ride1"})
			}
		}(i)
	}
	wg.Wait()

	if n := hub.GetConnectedClients(); n != 0 {
		t.Errorf("stalled client still registered: %d clients", n)
	}
	if _, open := <-stalled.Send; open {
		t.Error("send channel left open after eviction")
	}
}

func TestNotifyUserDeliversToMatchingClientOnly(t *testing.T) {
	hub := NewHub()
	rider := &Client{ID: "r1", UserType: "rider", Send: make(chan []byte, 1), Hub: hub}
	driver := &Client{ID: "d1", UserType: "driver", Send: make(chan []byte, 1), Hub: hub}
	addClient(hub, rider)
	addClient(hub, driver)

	hub.NotifyUser("r1", "ride_accepted", map[string]any{"rideId": "ride1"})

	select {
	case raw := <-rider.Send:
		var msg WebSocketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != "ride_accepted" {
			t.Errorf("type = %q, want ride_accepted", msg.Type)
		}
	default:
		t.Fatal("rider received nothing")
	}
	select {
	case <-driver.Send:
		t.Error("driver received a rider-scoped event")
	default:
	}
	if n := hub.GetConnectedClients(); n != 2 {
		t.Errorf("healthy clients evicted: %d left", n)
	}
}

func TestNotifyDriversSkipsRiders(t *testing.T) {
	hub := NewHub()
	rider := &Client{ID: "r1", UserType: "rider", Send: make(chan []byte, 1), Hub: hub}
	driver := &Client{ID: "d1", UserType: "driver", Send: make(chan []byte, 1), Hub: hub}
	addClient(hub, rider)
	addClient(hub, driver)

	hub.NotifyDrivers("ride_request", map[string]any{"rideId": "ride1"})

	select {
	case <-driver.Send:
	default:
		t.Error("driver received nothing")
	}
	select {
	case <-rider.Send:
		t.Error("rider received a driver broadcast")
	default:
	}
}
