// Package wire implements raft.Serializer: packing and unpacking the wire
// Frame envelope and its typed RPC payloads.
//
// JSONSerializer mirrors original_source/raftos/serializers.py's
// JSONSerializer (json.dumps/json.loads) field for field: Pack is
// json.Marshal, Unpack is json.Unmarshal, and the frame's "type" field
// picks which concrete RPC struct the payload is decoded into.
package wire

import (
	"encoding/json"
	"fmt"

	raft "github.com/coral-raft/raft"
)

// JSONSerializer is the default raft.Serializer. It is kept on the
// standard library's encoding/json rather than a third-party codec; see
// DESIGN.md for why no pack dependency improves on it here.
type JSONSerializer struct{}

// envelope is the on-the-wire shape: Payload stays raw until we know Type.
type envelope struct {
	Type    string          `json:"type"`
	Sender  raft.NodeID     `json:"sender,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func (JSONSerializer) Pack(frame raft.Frame) ([]byte, error) {
	env := envelope{Type: frame.Type, Sender: frame.Sender}
	payload, err := json.Marshal(frame.Payload)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal payload for %s: %w", frame.Type, err)
	}
	env.Payload = payload
	return json.Marshal(env)
}

func (JSONSerializer) Unpack(data []byte) (raft.Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return raft.Frame{}, fmt.Errorf("wire: unmarshal envelope: %w", err)
	}

	payload, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return raft.Frame{}, err
	}

	return raft.Frame{Type: env.Type, Sender: env.Sender, Payload: payload}, nil
}

func decodePayload(frameType string, raw json.RawMessage) (interface{}, error) {
	var payload interface{}
	switch frameType {
	case raft.TypeRequestVote:
		payload = &raft.RequestVote{}
	case raft.TypeRequestVoteResponse:
		payload = &raft.RequestVoteResponse{}
	case raft.TypeAppendEntries:
		payload = &raft.AppendEntries{}
	case raft.TypeAppendEntriesResponse:
		payload = &raft.AppendEntriesResponse{}
	default:
		return nil, fmt.Errorf("wire: unknown frame type %q", frameType)
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("wire: unmarshal %s payload: %w", frameType, err)
	}
	return payload, nil
}
