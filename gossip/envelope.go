// Copyright 2024 The xln Authors
// This file is part of the xln library.
//
// The xln library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The xln library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the xln library. If not, see <http://www.gnu.org/licenses/>.

// Package gossip is the peer-to-peer fan-out layer of §4.9: handshake,
// liveness probing, block/state-update relay with de-duplication, and
// parent-block request/response, generalized from the teacher's two-chain
// bridge protocol (node/sc/bridgepeer.go, mainbridge.go) to an N-peer mesh.
package gossip

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/machine"
)

// MessageType is the envelope's type tag (§4.9).
type MessageType string

const (
	TypeHandshake     MessageType = "HANDSHAKE"
	TypeBlock         MessageType = "BLOCK"
	TypeStateUpdate   MessageType = "STATE_UPDATE"
	TypePing          MessageType = "PING"
	TypePong          MessageType = "PONG"
	TypeRequestPeers  MessageType = "REQUEST_PEERS"
	TypePeersList     MessageType = "PEERS_LIST"
	TypeDiscovery     MessageType = "DISCOVERY"
	TypeRequestBlock  MessageType = "REQUEST_BLOCK"
	TypeBlockResponse MessageType = "BLOCK_RESPONSE"
)

// NodeInfo is the self-description exchanged on HANDSHAKE/DISCOVERY and
// listed in PEERS_LIST.
type NodeInfo struct {
	ID   common.MachineId `json:"id"`
	Addr string           `json:"addr"`
}

// Envelope is the length-prefixed JSON wire message of §6: fields are
// exactly those named in §4.9. Payload is deferred as a raw JSON blob so
// Decode can type-switch on Type before committing to a concrete struct.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	PeerID    common.MachineId `json:"peerId,omitempty"`
}

// HandshakePayload carries the sender's NodeInfo.
type HandshakePayload struct {
	Self NodeInfo `json:"self"`
}

// BlockPayload carries a full sealed block for BLOCK and BLOCK_RESPONSE.
type BlockPayload struct {
	Block *machine.Block `json:"block"`
}

// StateUpdatePayload carries an out-of-band state root announcement.
type StateUpdatePayload struct {
	MachineID common.MachineId `json:"machineId"`
	StateRoot common.Hash      `json:"stateRoot"`
	Height    uint64           `json:"height"`
}

// RequestPeersPayload and PeersListPayload implement peer discovery.
type RequestPeersPayload struct{}

type PeersListPayload struct {
	Peers []NodeInfo `json:"peers"`
}

// DiscoveryPayload announces a newly dialed peer to the rest of the mesh.
type DiscoveryPayload struct {
	Self NodeInfo `json:"self"`
}

// RequestBlockPayload asks a peer for the block with the given hash,
// issued when an incoming block's parent cannot be linked locally.
type RequestBlockPayload struct {
	Hash common.Hash `json:"hash"`
}

// newEnvelope marshals payload into an Envelope of the given type.
func newEnvelope(t MessageType, peerID common.MachineId, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "gossip: encoding envelope payload")
	}
	return Envelope{Type: t, Payload: raw, Timestamp: time.Now(), PeerID: peerID}, nil
}

// decodePayload unmarshals env.Payload into out. Malformed envelopes are
// the caller's responsibility to log and drop (§4.9 failure semantics).
func decodePayload(env Envelope, out interface{}) error {
	if len(env.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(env.Payload, out)
}
