package entity

import "time"

// UserStatus is the directory presence state of a user.
type UserStatus string

const (
	UserStatusOnline  UserStatus = "online"
	UserStatusOffline UserStatus = "offline"
	UserStatusAway    UserStatus = "away"
	UserStatusBusy    UserStatus = "busy"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusOnline, UserStatusOffline, UserStatusAway, UserStatusBusy:
		return true
	}
	return false
}

// User is the minimal directory view consumed by the messaging subsystem.
// Accounts, credentials and profiles are owned elsewhere; messaging only
// references users by id and reads name, role and presence.
type User struct {
	Id       int64      `bson:"_id" json:"id"`
	Name     string     `bson:"name" json:"name"`
	Role     string     `bson:"role" json:"role"`
	Status   UserStatus `bson:"status" json:"status"`
	LastSeen time.Time  `bson:"lastSeen,omitempty" json:"lastSeen"`
}

type UserIndexFilter struct {
	Ids []int64 `bson:"ids"`
}
