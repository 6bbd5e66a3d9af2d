package protocol

import "encoding/json"

// Outbound frame types.
const (
	TypeInfo         = "info"
	TypeHeartbeatAck = "heartbeat_ack"
)

// ConnectedMessage is the text of the info frame sent on connect.
const ConnectedMessage = "Connected to WebSocket server"

// Outbound is a server to client frame.
type Outbound struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

var (
	infoFrame         = mustEncode(Outbound{Type: TypeInfo, Message: ConnectedMessage})
	heartbeatAckFrame = mustEncode(Outbound{Type: TypeHeartbeatAck})
)

// Connected returns the encoded info frame. The slice is shared; callers must not modify it.
func Connected() []byte { return infoFrame }

// HeartbeatAck returns the encoded heartbeat acknowledgement. The slice is shared; callers must
// not modify it.
func HeartbeatAck() []byte { return heartbeatAckFrame }

func mustEncode(o Outbound) []byte {
	b, err := json.Marshal(o)
	if err != nil {
		panic(err)
	}
	return b
}
