package ws

// IHub is the per-user push fabric. Delivery is fire-and-forget: if no
// session is connected for a user the payload is dropped, and durability
// lives entirely in the stores.
type IHub interface {
	Run()
	RegisterClient(client *UserClient)
	UnregisterClient(client *UserClient)
	SendToUser(userId string, message []byte)
	Broadcast(message []byte)
	GetClientCount() int
	SetOnUserOffline(callback func(userId string) error)
}
