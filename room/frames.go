package room

// Frame types of the duplex contract.
const (
	FrameJoinRoom      = "joinRoom"
	FrameLeaveRoom     = "leaveRoom"
	FrameChatMessage   = "chat message"
	FrameMessageDelete = "message delete"
	FrameError         = "error"
)

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
