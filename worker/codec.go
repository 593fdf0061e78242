package worker

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownMessage is returned when decoding an envelope whose type tag is not a known
// command or message.
var ErrUnknownMessage = errors.New("unknown message type")

// envelope is the wire form of every command and message: a type tag plus its payload.
type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var commandDecoders = map[Kind]func(json.RawMessage) (Command, error){
	INIT:                 decodeAs[Command, Init],
	FLOOD_FILL:           decodeAs[Command, FloodFill],
	REVERSE_FLOOD_FILL:   decodeAs[Command, ReverseFloodFill],
	DISPERSE_PHEROMONES:  decodeAs[Command, Disperse],
	SET_PHEROMONE:        decodeAs[Command, SetPheromone],
	INSERT_IN_GRID:       decodeAs[Command, InsertInGrid],
	REMOVE_FROM_GRID:     decodeAs[Command, RemoveFromGrid],
	ADD_ENTITY:           decodeAs[Command, AddEntity],
	REMOVE_ENTITY:        decodeAs[Command, RemoveEntity],
	SET_EMITTER_QUANTITY: decodeAs[Command, SetEmitterQuantity],
	CHANGE_EMITTER_TYPE:  decodeAs[Command, ChangeEmitterType],
}

var messageDecoders = map[Kind]func(json.RawMessage) (Message, error){
	PHEROMONES: decodeAs[Message, Pheromones],
	TURBINES:   decodeAs[Message, Turbines],
	ENTITIES:   decodeAs[Message, Entities],
}

// Encode wraps a command or message in its tagged envelope.
func Encode(v interface{ Kind() Kind }) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", v.Kind(), err)
	}
	return json.Marshal(envelope{Type: v.Kind(), Payload: payload})
}

// DecodeCommand parses an envelope produced by Encode into its command.
func DecodeCommand(data []byte) (Command, error) {
	return decodeEnvelope(data, commandDecoders)
}

// DecodeMessage parses an envelope produced by Encode into its message.
func DecodeMessage(data []byte) (Message, error) {
	return decodeEnvelope(data, messageDecoders)
}

func decodeEnvelope[I any](data []byte, decoders map[Kind]func(json.RawMessage) (I, error)) (v I, err error) {
	var env envelope
	if err = json.Unmarshal(data, &env); err != nil {
		err = fmt.Errorf("decode envelope: %w", err)
		return
	}
	decoder, ok := decoders[env.Type]
	if !ok {
		err = fmt.Errorf("%q: %w", env.Type, ErrUnknownMessage)
		return
	}
	return decoder(env.Payload)
}

// decodeAs unmarshals a payload into the concrete type T and returns it as the interface I.
func decodeAs[I any, T any](payload json.RawMessage) (v I, err error) {
	var concrete T
	if err = json.Unmarshal(payload, &concrete); err != nil {
		err = fmt.Errorf("decode payload: %w", err)
		return
	}
	if v, ok := any(concrete).(I); ok {
		return v, nil
	}
	err = fmt.Errorf("%T: %w", concrete, ErrUnknownMessage)
	return
}
