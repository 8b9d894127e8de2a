package student

import "time"

type Student struct {
	ID         string    `json:"id"`
	NIS        string    `json:"nis"`
	Nama       string    `json:"nama"`
	Kelas      string    `json:"kelas"`
	NoTelpWali string    `json:"noTelpWali"`
	EmailWali  *string   `json:"emailWali,omitempty"`
	Alamat     *string   `json:"alamat,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateInput struct {
	NIS        string  `json:"nis" validate:"required,max=30"`
	Nama       string  `json:"nama" validate:"required,max=150"`
	Kelas      string  `json:"kelas" validate:"required,max=30"`
	NoTelpWali string  `json:"noTelpWali" validate:"required,max=30"`
	EmailWali  *string `json:"emailWali" validate:"omitempty,email"`
	Alamat     *string `json:"alamat"`
}

type UpdateInput struct {
	NIS        *string `json:"nis" validate:"omitempty,max=30"`
	Nama       *string `json:"nama" validate:"omitempty,max=150"`
	Kelas      *string `json:"kelas" validate:"omitempty,max=30"`
	NoTelpWali *string `json:"noTelpWali" validate:"omitempty,max=30"`
	EmailWali  *string `json:"emailWali" validate:"omitempty,email"`
	Alamat     *string `json:"alamat"`
}

type ListQuery struct {
	Limit  int
	Offset int
	Search string // NIS or name, case-insensitive substring
	Kelas  string
}
