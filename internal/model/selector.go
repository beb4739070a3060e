package model

import "fmt"

// SelectorKind tags which identifier a UserSelector carries.
type SelectorKind int

const (
	SelectByUserID SelectorKind = iota + 1
	SelectByEmailID
	SelectByInternalUserID
)

func (k SelectorKind) String() string {
	switch k {
	case SelectByUserID:
		return "userId"
	case SelectByEmailID:
		return "emailId"
	case SelectByInternalUserID:
		return "internalUserId"
	default:
		return fmt.Sprintf("SelectorKind(%d)", int(k))
	}
}

// UserSelector identifies exactly one account by exactly one identifier.
// The zero value selects nothing and is rejected by lookups.
type UserSelector struct {
	kind           SelectorKind
	userID         string
	emailID        string
	internalUserID int64
}

func ByUserID(id string) UserSelector {
	return UserSelector{kind: SelectByUserID, userID: id}
}

func ByEmailID(email string) UserSelector {
	return UserSelector{kind: SelectByEmailID, emailID: email}
}

func ByInternalUserID(id int64) UserSelector {
	return UserSelector{kind: SelectByInternalUserID, internalUserID: id}
}

func (s UserSelector) Kind() SelectorKind    { return s.kind }
func (s UserSelector) UserID() string        { return s.userID }
func (s UserSelector) EmailID() string       { return s.emailID }
func (s UserSelector) InternalUserID() int64 { return s.internalUserID }

func (s UserSelector) String() string {
	switch s.kind {
	case SelectByUserID:
		return "userId=" + s.userID
	case SelectByEmailID:
		return "emailId=" + s.emailID
	case SelectByInternalUserID:
		return fmt.Sprintf("internalUserId=%d", s.internalUserID)
	default:
		return "empty selector"
	}
}
