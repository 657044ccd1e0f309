// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data: plain values with struct tags
// for JSON and database mapping, no behaviour beyond small helpers.
package model

import (
	"time"

	"github.com/rs/xid"
)

// User represents a registered account.
//
// WHY xid.ID INSTEAD OF string?
// An xid is a 12-byte, time-ordered identifier. Using the typed value
// everywhere means ownership checks compare two comparable arrays with ==,
// never two loosely formatted strings. It serializes as a 20-char base32
// string in JSON, URLs and database columns (xid implements
// json.Marshaler, sql.Scanner and driver.Valuer).
//
// PasswordHash is tagged json:"-" so a User can be written straight into a
// response without leaking the bcrypt hash.
type User struct {
	ID           xid.ID    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
