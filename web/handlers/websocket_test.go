package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient simulates a WebSocket client without a real connection.
type mockClient struct {
	send chan []byte
}

func newMockClient() *mockClient {
	return &mockClient{send: make(chan []byte, 16)}
}

func (m *mockClient) getSendChannel() chan []byte { return m.send }
func (m *mockClient) close()                      {}

func TestHubBroadcastReachesClients(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	client := newMockClient()
	hub.Register(client)

	hub.BroadcastStage("knowledge_retrieval", "retrieved=5")

	select {
	case data := <-client.send:
		var event PipelineEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, "pipeline_stage", event.Type)
		assert.Equal(t, "knowledge_retrieval", event.Stage)
		assert.Equal(t, "retrieved=5", event.Detail)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never reached client")
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	client := newMockClient()
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, open := <-client.send:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed after unregister")
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	slow := &mockClient{send: make(chan []byte)} // unbuffered, never read
	hub.Register(slow)

	// Give the register a moment to land, then flood.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		hub.BroadcastStage("stage", "x")
	}

	select {
	case _, open := <-slow.send:
		// Either a queued message or a closed channel is acceptable;
		// eventually the channel must close.
		if open {
			_, open = <-slow.send
			assert.False(t, open)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("slow client never dropped")
	}
}
