package collab

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	raw, err := Encode(MsgSyncResponse, SyncResponse{Content: "héllo", Version: 12})
	if err != nil {
		t.Fatal(err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != MsgSyncResponse {
		t.Errorf("type = %q", env.Type)
	}

	var sync SyncResponse
	if err := env.Decode(&sync); err != nil {
		t.Fatal(err)
	}
	if sync.Content != "héllo" || sync.Version != 12 {
		t.Errorf("decoded = %+v", sync)
	}
}

func TestEncodeWithoutData(t *testing.T) {
	raw, err := Encode(MsgPing, nil)
	if err != nil {
		t.Fatal(err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != MsgPing || len(env.Data) != 0 {
		t.Errorf("envelope = %+v", env)
	}

	// Decoding an empty payload is a no-op, not an error.
	var ignored SyncResponse
	if err := env.Decode(&ignored); err != nil {
		t.Errorf("decode empty payload: %v", err)
	}
}

func TestColorForUserStableAndInPalette(t *testing.T) {
	id := uuid.New()
	first := ColorForUser(id)
	if first != ColorForUser(id) {
		t.Error("color not stable across calls")
	}

	inPalette := false
	for _, c := range userPalette {
		if c == first {
			inPalette = true
			break
		}
	}
	if !inPalette {
		t.Errorf("color %q not in palette", first)
	}
}
