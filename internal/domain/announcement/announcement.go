package announcement

import (
	"errors"
	"time"
)

type Announcement struct {
	ID           int64
	DepartmentID int64
	AuthorID     int64
	Message      string
	CreatedAt    time.Time
}

// Entry is one row of the board: an announcement joined with its author and
// department. Department is nil when department_id points at no department.
type Entry struct {
	ID         int64     `json:"id"`
	Message    string    `json:"mensagem"`
	CreatedAt  time.Time `json:"data"`
	Username   string    `json:"username"`
	Department *string   `json:"departamento"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	DepartmentID *int64
}

var (
	ErrNotFound = errors.New("announcement not found")
	ErrWrite    = errors.New("announcement write failed")
)

type CreateRequest struct {
	DepartmentID FlexibleID `json:"departamento_id" form:"departamento_id" binding:"required"`
	Message      string     `json:"mensagem" form:"mensagem" binding:"required"`
}

type UpdateRequest struct {
	Message string `json:"mensagem" form:"mensagem" binding:"required"`
}
