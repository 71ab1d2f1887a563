package p2p

import (
	"encoding/json"

	"mixer/internal/mixer"
)

// Message is the generic envelope for any message sent over the network.
// It allows for flexible communication of different data structures.
type Message struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	SenderID string          `json:"senderId"`
}

// DepositEventPayload announces one newly recorded deposit to a peer.
// Relaying the event log is how off-chain provers learn the leaf set; the
// pool itself never serves historical leaves.
type DepositEventPayload struct {
	SenderID string             `json:"senderId"`
	Event    mixer.DepositEvent `json:"event"`
}

// SyncRequestPayload asks a peer for every event at or after FromIndex.
// A node that detects a gap in its log uses this to catch up.
type SyncRequestPayload struct {
	SenderID  string `json:"senderId"`
	FromIndex uint64 `json:"fromIndex"`
}

// SyncResponsePayload carries the requested slice of the event log.
type SyncResponsePayload struct {
	SenderID string               `json:"senderId"`
	Events   []mixer.DepositEvent `json:"events"`
}
