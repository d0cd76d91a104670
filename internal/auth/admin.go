package auth

import "strings"

// AdminPolicy decides whether an authenticated email has admin rights.
type AdminPolicy interface {
	IsAdmin(email string) bool
}

// EmailAllowList grants admin to a fixed set of emails, compared
// case-insensitively.
type EmailAllowList map[string]struct{}

func NewEmailAllowList(emails []string) EmailAllowList {
	l := make(EmailAllowList, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			l[e] = struct{}{}
		}
	}
	return l
}

func (l EmailAllowList) IsAdmin(email string) bool {
	_, ok := l[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID  uint64
	Email   string
	IsAdmin bool
}
