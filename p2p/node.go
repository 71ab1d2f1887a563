// Package p2p relays deposit events between mixer operators and observers.
//
// Each node keeps an ordered copy of the deposit event log. New events are
// broadcast to every peer; a node that notices a gap in its log asks a peer
// for the missing suffix. Observers (provers) join the network to rebuild
// the commitment tree without ever querying the pool for leaves.
package p2p

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"mixer/internal/mixer"
)

// Node is one participant in the deposit-event gossip network.
type Node struct {
	ID        string
	Address   string
	Peers     map[string]string // Map of Node ID to its address
	server    *http.Server
	waitGroup *sync.WaitGroup

	eventMutex sync.Mutex
	events     []mixer.DepositEvent // ordered by leaf index, no gaps
}

// NewNode creates and initializes a new Node.
func NewNode(id, address string, peers map[string]string, wg *sync.WaitGroup) *Node {
	return &Node{
		ID:        id,
		Address:   address,
		Peers:     peers,
		waitGroup: wg,
	}
}

// Events returns a copy of the node's contiguous event log.
func (n *Node) Events() []mixer.DepositEvent {
	n.eventMutex.Lock()
	defer n.eventMutex.Unlock()
	out := make([]mixer.DepositEvent, len(n.events))
	copy(out, n.events)
	return out
}

// messageHandler is the HTTP handler for receiving messages.
// It decodes the message envelope and then processes the payload based on its type.
func (n *Node) messageHandler(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		log.Printf("[%s] Received a bad request: %v", n.ID, err)
		return
	}

	switch msg.Type {
	case "deposit_event":
		var payload DepositEventPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("[%s] Error unmarshalling DepositEventPayload: %v", n.ID, err)
			return
		}
		n.handleDepositEvent(payload)

	case "sync_request":
		var payload SyncRequestPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("[%s] Error unmarshalling SyncRequestPayload: %v", n.ID, err)
			return
		}
		n.handleSyncRequest(payload)

	case "sync_response":
		var payload SyncResponsePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("[%s] Error unmarshalling SyncResponsePayload: %v", n.ID, err)
			return
		}
		n.handleSyncResponse(payload)

	default:
		log.Printf("[%s] Received unknown message type: %s", n.ID, msg.Type)
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Message received")
}

// handleDepositEvent appends an announced event if it extends the log.
// An event beyond the next expected index signals a gap, which triggers a
// sync request back to the announcing peer.
func (n *Node) handleDepositEvent(payload DepositEventPayload) {
	n.eventMutex.Lock()
	next := uint64(len(n.events))
	switch {
	case payload.Event.LeafIndex < next:
		// Already known; gossip duplicates are expected.
		n.eventMutex.Unlock()
		return
	case payload.Event.LeafIndex == next:
		n.events = append(n.events, payload.Event)
		n.eventMutex.Unlock()
		log.Printf("[%s] Recorded deposit event %d from %s", n.ID, payload.Event.LeafIndex, payload.SenderID)
		return
	default:
		n.eventMutex.Unlock()
		log.Printf("[%s] Gap detected (have %d, got %d); requesting sync from %s",
			n.ID, next, payload.Event.LeafIndex, payload.SenderID)
		go func() {
			req := SyncRequestPayload{SenderID: n.ID, FromIndex: next}
			if err := n.SendMessage(payload.SenderID, "sync_request", req); err != nil {
				log.Printf("[%s] Error requesting sync from %s: %v", n.ID, payload.SenderID, err)
			}
		}()
	}
}

// handleSyncRequest answers with the suffix of the log the peer is missing.
func (n *Node) handleSyncRequest(payload SyncRequestPayload) {
	n.eventMutex.Lock()
	var suffix []mixer.DepositEvent
	if payload.FromIndex < uint64(len(n.events)) {
		suffix = append(suffix, n.events[payload.FromIndex:]...)
	}
	n.eventMutex.Unlock()

	resp := SyncResponsePayload{SenderID: n.ID, Events: suffix}
	go func() {
		if err := n.SendMessage(payload.SenderID, "sync_response", resp); err != nil {
			log.Printf("[%s] Error sending sync response to %s: %v", n.ID, payload.SenderID, err)
		}
	}()
}

// handleSyncResponse merges a peer's suffix into the local log, keeping it
// contiguous.
func (n *Node) handleSyncResponse(payload SyncResponsePayload) {
	n.eventMutex.Lock()
	defer n.eventMutex.Unlock()
	for _, ev := range payload.Events {
		if ev.LeafIndex == uint64(len(n.events)) {
			n.events = append(n.events, ev)
		}
	}
	log.Printf("[%s] Synced to %d events via %s", n.ID, len(n.events), payload.SenderID)
}

// BroadcastDeposit records a locally observed deposit event and announces it
// to every peer. Called by the operator after each committed deposit.
func (n *Node) BroadcastDeposit(event mixer.DepositEvent) {
	n.eventMutex.Lock()
	if event.LeafIndex == uint64(len(n.events)) {
		n.events = append(n.events, event)
	}
	n.eventMutex.Unlock()

	payload := DepositEventPayload{SenderID: n.ID, Event: event}
	for peerID := range n.Peers {
		go func(id string) {
			if err := n.SendMessage(id, "deposit_event", payload); err != nil {
				log.Printf("[%s] Error announcing deposit to %s: %v", n.ID, id, err)
			}
		}(peerID)
	}
}

// RequestSync asks a specific peer for every event the node is missing.
func (n *Node) RequestSync(peerID string) error {
	n.eventMutex.Lock()
	from := uint64(len(n.events))
	n.eventMutex.Unlock()
	return n.SendMessage(peerID, "sync_request", SyncRequestPayload{SenderID: n.ID, FromIndex: from})
}

// StartServer starts the node's HTTP server in a new goroutine.
// It signals on the 'ready' channel once the server is actively listening.
func (n *Node) StartServer(ready chan<- struct{}) {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", n.messageHandler)

	n.server = &http.Server{
		Addr:    n.Address,
		Handler: mux,
	}

	listener, err := net.Listen("tcp", n.Address)
	if err != nil {
		log.Fatalf("[%s] failed to listen: %v", n.ID, err)
	}

	n.waitGroup.Add(1)
	go func() {
		defer n.waitGroup.Done()
		log.Printf("[%s] Server starting on %s", n.ID, n.Address)

		// Signal that the server is up and ready
		ready <- struct{}{}

		if err := n.server.Serve(listener); err != http.ErrServerClosed {
			log.Fatalf("[%s] Server failed: %v", n.ID, err)
		}
		log.Printf("[%s] Server stopped.", n.ID)
	}()
}

// Shutdown stops the node's HTTP server.
func (n *Node) Shutdown() error {
	if n.server == nil {
		return nil
	}
	return n.server.Close()
}

// SendMessage sends a message to another node in the network.
// The payload can be any struct that is marshallable to JSON.
func (n *Node) SendMessage(targetID, messageType string, payload interface{}) error {
	targetAddress, ok := n.Peers[targetID]
	if !ok {
		return fmt.Errorf("peer '%s' not found in directory", targetID)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	msg := Message{
		Type:     messageType,
		Payload:  payloadBytes,
		SenderID: n.ID,
	}

	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message envelope: %v", err)
	}

	req, err := http.NewRequest("POST", "http://"+targetAddress+"/message", bytes.NewBuffer(messageBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer returned non-OK status: %s", resp.Status)
	}

	return nil
}
