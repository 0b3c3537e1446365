package ws

import (
	"encoding/json"
	"time"
)

// Envelope is the wire wrapper for every outbound channel event.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusChangedPayload struct {
	UserID    uint      `json:"user_id"`
	IsOnline  bool      `json:"is_online"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

type NotificationPayload struct {
	MessageID string          `json:"message_id"`
	Data      json.RawMessage `json:"data"`
}

type DeliveryStatusPayload struct {
	MessageID string        `json:"message_id"`
	Status    ReceiptStatus `json:"status"`
}

type DeliveryTimeoutPayload struct {
	MessageID string `json:"message_id"`
}

type QueuedFlushedPayload struct {
	UserID uint `json:"user_id"`
	Count  int  `json:"count"`
}

type OnlineUsersPayload struct {
	Users []UserStatus `json:"users"`
}

func statusChangedEvent(userID uint, isOnline bool, source string) Envelope {
	return Envelope{Type: "status_changed", Payload: StatusChangedPayload{
		UserID:    userID,
		IsOnline:  isOnline,
		Timestamp: time.Now(),
		Source:    source,
	}}
}

func notificationEvent(messageID string, data json.RawMessage) Envelope {
	return Envelope{Type: "notification", Payload: NotificationPayload{
		MessageID: messageID,
		Data:      data,
	}}
}

func deliveryStatusEvent(messageID string, status ReceiptStatus) Envelope {
	return Envelope{Type: "delivery_status", Payload: DeliveryStatusPayload{
		MessageID: messageID,
		Status:    status,
	}}
}

func deliveryTimeoutEvent(messageID string) Envelope {
	return Envelope{Type: "delivery_timeout", Payload: DeliveryTimeoutPayload{MessageID: messageID}}
}

func queuedFlushedEvent(userID uint, count int) Envelope {
	return Envelope{Type: "queued_messages_flushed", Payload: QueuedFlushedPayload{
		UserID: userID,
		Count:  count,
	}}
}

func onlineUsersEvent(users []UserStatus) Envelope {
	return Envelope{Type: "online_users", Payload: OnlineUsersPayload{Users: users}}
}

func pongEvent() Envelope {
	return Envelope{Type: "pong", Payload: struct{}{}}
}
