package domain

import "time"

// Creator is the protected resource credentials grant access to. Only the fields the
// access gate needs are modelled; the creator profile lives elsewhere.
type Creator struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}
