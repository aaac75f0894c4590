package auth

import "github.com/polkiloo/pulperia/internal/domain/model"

// Principal is the identity carried by a verified token.
type Principal = model.Actor

func validPrincipal(p Principal) bool {
	if p.ID == "" {
		return false
	}
	_, ok := model.ParseRole(string(p.Role))
	return ok
}
