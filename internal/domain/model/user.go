package model

import (
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
)

type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Role      enums.Role `json:"role"`
	Suspended bool       `json:"suspended"`
	CreatedAt time.Time  `json:"created_at"`
}
