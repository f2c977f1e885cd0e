package entity

import (
	"time"
)

type User struct {
	UID      string `json:"uid" firestore:"uid"`
	Name     string `json:"name" firestore:"name"`
	Email    string `json:"email" firestore:"email"`
	PhotoURL string `json:"photo_url" firestore:"photoURL"`

	// Online presence, flipped on login/logout
	Online   bool      `json:"online" firestore:"online"`
	LastSeen time.Time `json:"last_seen" firestore:"lastSeen,serverTimestamp"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

// Details is the denormalized copy of the profile stored on chats.
func (u *User) Details() MemberDetails {
	return MemberDetails{
		Name:     u.Name,
		Email:    u.Email,
		PhotoURL: u.PhotoURL,
	}
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
