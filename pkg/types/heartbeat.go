package types

// HeartBeat is the body of GET /api/heart and the data of every WebSocket
// message. A nil HeartBeat field encodes as null and means no fresh reading.
type HeartBeat struct {
	HeartBeat *int `json:"heart_beat"`
}

// NewHeartBeat builds the payload for a store lookup result.
func NewHeartBeat(value int, ok bool) HeartBeat {
	if !ok {
		return HeartBeat{}
	}
	return HeartBeat{HeartBeat: &value}
}

// Sample is the producer-side payload: {"heart_rate": 72}. It is accepted by
// the Redis ingress and served by JSON sensor bridges the agent polls.
type Sample struct {
	HeartRate *int `json:"heart_rate"`
}
