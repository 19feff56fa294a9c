package schema

import (
	"bytes"
	"testing"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

func mustLoad(t *testing.T) *Registry {
	t.Helper()
	reg, err := Load("../../schemas")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return reg
}

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(raw)))
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return v
}

func TestLoadCompilesAllCanonicalSchemas(t *testing.T) {
	reg := mustLoad(t)
	descriptors := reg.List()
	if len(descriptors) != len(allKeys) {
		t.Fatalf("got %d descriptors, want %d", len(descriptors), len(allKeys))
	}
	for i := 1; i < len(descriptors); i++ {
		if descriptors[i-1].Key >= descriptors[i].Key {
			t.Fatalf("List() not sorted: %s >= %s", descriptors[i-1].Key, descriptors[i].Key)
		}
	}
}

func TestValidateNewTradeAccepted(t *testing.T) {
	reg := mustLoad(t)
	payload := decode(t, `{
		"id": "t1", "gameId": "g1", "playerId": "p1", "type": "buy",
		"tickIndex": 3, "amount": 10, "qty": 2, "price": 1.5, "coin": "SOL"
	}`)

	v := reg.Validate(KeyNewTrade, payload)
	if !v.OK {
		t.Fatalf("expected a valid newTrade payload to pass, got error: %s", v.Error)
	}
	if v.Schema != string(KeyNewTrade) {
		t.Fatalf("Schema = %s, want %s", v.Schema, KeyNewTrade)
	}
}

func TestValidateNewTradeMissingRequiredField(t *testing.T) {
	reg := mustLoad(t)
	payload := decode(t, `{"id": "t1", "gameId": "g1"}`)

	v := reg.Validate(KeyNewTrade, payload)
	if v.OK {
		t.Fatalf("expected a payload missing required fields to fail validation")
	}
	if v.Error == "" {
		t.Fatalf("expected a non-empty validation error")
	}
}

func TestValidateUnknownKey(t *testing.T) {
	reg := mustLoad(t)
	v := reg.Validate(Key("not-a-real-key"), map[string]interface{}{})
	if v.OK {
		t.Fatalf("expected validation against an unknown key to fail")
	}
}

func TestGetKnownAndUnknownKey(t *testing.T) {
	reg := mustLoad(t)

	d, ok := reg.Get(KeyGameStateUpdate)
	if !ok {
		t.Fatalf("expected gameStateUpdate descriptor to be found")
	}
	if d.OutboundType != "game_state_update" {
		t.Fatalf("outboundType = %s, want game_state_update", d.OutboundType)
	}

	if _, ok := reg.Get(Key("missing")); ok {
		t.Fatalf("expected lookup of an unknown key to fail")
	}
}
