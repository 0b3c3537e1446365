package ws

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// EventContext carries the dependencies an inbound event needs. Process runs
// as a hub loop turn, so it may touch hub state directly.
type EventContext struct {
	SessionID string
	Hub       *Hub
}

// Event is one typed inbound channel event.
type Event interface {
	GetType() string
	Process(ctx *EventContext) error
}

// SerializedEvent is the wire wrapper clients send.
type SerializedEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var typeRegistry = map[string]reflect.Type{}

func init() {
	RegisterType(&EventIdentify{})
	RegisterType(&EventLogout{})
	RegisterType(&EventOnlineUsers{})
	RegisterType(&EventSendToUser{})
	RegisterType(&EventBroadcast{})
	RegisterType(&EventConfirmDelivery{})
	RegisterType(&EventPing{})
}

func RegisterType(ev Event) {
	typeRegistry[ev.GetType()] = reflect.TypeOf(ev).Elem()
}

// Deserialize parses a raw frame into its typed event.
func Deserialize(data []byte) (Event, error) {
	var wrapper SerializedEvent
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	t, ok := typeRegistry[wrapper.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", wrapper.Type)
	}
	ev := reflect.New(t).Interface().(Event)
	if len(wrapper.Payload) > 0 {
		if err := json.Unmarshal(wrapper.Payload, ev); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// EventIdentify binds the connection to a user and marks the user online.
// A missing user id is silently ignored.
type EventIdentify struct {
	UserID uint   `json:"user_id"`
	Source string `json:"source"`
}

func (ev *EventIdentify) GetType() string { return "identify" }

func (ev *EventIdentify) Process(ctx *EventContext) error {
	if ev.UserID == 0 {
		return nil
	}
	source := ev.Source
	if source == "" {
		source = "identify"
	}
	ctx.Hub.identify(ctx.SessionID, ev.UserID, source)
	return nil
}

// EventLogout forces the persisted online flag false and clears the user's
// connection bookkeeping.
type EventLogout struct {
	UserID uint `json:"user_id"`
}

func (ev *EventLogout) GetType() string { return "logout" }

func (ev *EventLogout) Process(ctx *EventContext) error {
	if ev.UserID == 0 {
		return nil
	}
	ctx.Hub.logout(ev.UserID, "logout")
	return nil
}

// EventOnlineUsers answers with the composite reachability snapshot.
type EventOnlineUsers struct{}

func (ev *EventOnlineUsers) GetType() string { return "get_online_users" }

func (ev *EventOnlineUsers) Process(ctx *EventContext) error {
	sess := ctx.Hub.sessions[ctx.SessionID]
	if sess == nil {
		return nil
	}
	return sess.Send(onlineUsersEvent(ctx.Hub.presence.Snapshot()))
}

// EventSendToUser pushes a notification payload at one user, queueing when
// the target is unreachable.
type EventSendToUser struct {
	UserID uint            `json:"user_id"`
	Data   json.RawMessage `json:"data"`
}

func (ev *EventSendToUser) GetType() string { return "send_to_user" }

func (ev *EventSendToUser) Process(ctx *EventContext) error {
	if ev.UserID == 0 {
		return nil
	}
	ctx.Hub.sendToUser("", ev.UserID, ev.Data, ctx.SessionID)
	return nil
}

// EventBroadcast pushes a payload to every connected session.
type EventBroadcast struct {
	Data json.RawMessage `json:"data"`
}

func (ev *EventBroadcast) GetType() string { return "broadcast" }

func (ev *EventBroadcast) Process(ctx *EventContext) error {
	ctx.Hub.broadcastAll("", ev.Data)
	return nil
}

// EventConfirmDelivery is the client acknowledgment for a delivered
// notification.
type EventConfirmDelivery struct {
	MessageID string `json:"message_id"`
	UserID    uint   `json:"user_id"`
}

func (ev *EventConfirmDelivery) GetType() string { return "confirm_delivery" }

func (ev *EventConfirmDelivery) Process(ctx *EventContext) error {
	if ev.MessageID == "" {
		return nil
	}
	ctx.Hub.confirm(ev.MessageID, ev.UserID)
	return nil
}

// EventPing is an application-level keepalive. An identified connection's
// ping also refreshes its owner's last-active timestamp.
type EventPing struct{}

func (ev *EventPing) GetType() string { return "ping" }

func (ev *EventPing) Process(ctx *EventContext) error {
	sess := ctx.Hub.sessions[ctx.SessionID]
	if sess == nil {
		return nil
	}
	if userID, ok := ctx.Hub.registry.OwnerOf(ctx.SessionID); ok {
		ctx.Hub.presence.Touch(userID)
	}
	return sess.Send(pongEvent())
}
