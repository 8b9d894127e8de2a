package settings

import "time"

// Settings is the school profile plus the SPP fee table.
type Settings struct {
	NamaSekolah string           `json:"namaSekolah"`
	Alamat      string           `json:"alamat"`
	Telepon     string           `json:"telepon"`
	TahunAjaran string           `json:"tahunAjaran"`
	NominalSPP  map[string]int64 `json:"nominalSPP"` // grade tier -> monthly fee
	DefaultSPP  int64            `json:"defaultSPP"`
	UpdatedAt   *time.Time       `json:"updatedAt,omitempty"`
}

type UpdateInput struct {
	NamaSekolah *string          `json:"namaSekolah" validate:"omitempty,max=200"`
	Alamat      *string          `json:"alamat" validate:"omitempty,max=500"`
	Telepon     *string          `json:"telepon" validate:"omitempty,max=30"`
	TahunAjaran *string          `json:"tahunAjaran" validate:"omitempty,max=20"`
	NominalSPP  map[string]int64 `json:"nominalSPP"`
	DefaultSPP  *int64           `json:"defaultSPP" validate:"omitempty,gte=0"`
}
