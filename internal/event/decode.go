package event

import "encoding/json"

// DecodePayload returns the payload as T. Events published in process carry
// the typed struct already; anything else (a map read back from the event
// log, for example) is converted through JSON.
func DecodePayload[T any](payload any) (T, error) {
	if v, ok := payload.(T); ok {
		return v, nil
	}
	var out T
	raw, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}
