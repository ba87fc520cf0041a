package controller

import "encoding/json"

func marshalPair(id string, score float64) ([]byte, error) {
	return json.Marshal([2]any{id, score})
}
