package model

// Queue is a named lane grouping visit token sequences. It has no state of
// its own.
type Queue struct {
	Base
	Name string `db:"name" json:"name"`
}

type CreateQueueRequest struct {
	Name string `json:"name" binding:"required"`
}
