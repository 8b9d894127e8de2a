package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
)

// singletonID is the only row school_settings may hold.
const singletonID = 1

type SettingsModel struct {
	ID          int16                                `gorm:"column:id;primaryKey"`
	NamaSekolah string                               `gorm:"column:nama_sekolah"`
	Alamat      string                               `gorm:"column:alamat"`
	Telepon     string                               `gorm:"column:telepon"`
	TahunAjaran string                               `gorm:"column:tahun_ajaran"`
	NominalSPP  datatypes.JSONType[map[string]int64] `gorm:"column:nominal_spp;type:jsonb"`
	DefaultSPP  int64                                `gorm:"column:default_spp"`
	UpdatedAt   time.Time                            `gorm:"column:updated_at"`
}

func (SettingsModel) TableName() string { return "school_settings" }

type SettingsRepo struct {
	db *gorm.DB
}

func NewSettingsRepo(db *gorm.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(ctx context.Context) (*settingsuc.Settings, error) {
	var m SettingsModel
	if err := r.db.WithContext(ctx).Where("id = ?", singletonID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settingsuc.ErrNotFound
		}
		return nil, err
	}
	return toUC(m), nil
}

func (r *SettingsRepo) Save(ctx context.Context, in settingsuc.Settings) (*settingsuc.Settings, error) {
	tiers := in.NominalSPP
	if tiers == nil {
		tiers = map[string]int64{}
	}
	m := SettingsModel{
		ID:          singletonID,
		NamaSekolah: in.NamaSekolah,
		Alamat:      in.Alamat,
		Telepon:     in.Telepon,
		TahunAjaran: in.TahunAjaran,
		NominalSPP:  datatypes.NewJSONType(tiers),
		DefaultSPP:  in.DefaultSPP,
		UpdatedAt:   time.Now(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
	if err != nil {
		return nil, err
	}
	return toUC(m), nil
}

func toUC(m SettingsModel) *settingsuc.Settings {
	updated := m.UpdatedAt
	tiers := m.NominalSPP.Data()
	if tiers == nil {
		tiers = map[string]int64{}
	}
	return &settingsuc.Settings{
		NamaSekolah: m.NamaSekolah,
		Alamat:      m.Alamat,
		Telepon:     m.Telepon,
		TahunAjaran: m.TahunAjaran,
		NominalSPP:  tiers,
		DefaultSPP:  m.DefaultSPP,
		UpdatedAt:   &updated,
	}
}

var _ settingsuc.Store = (*SettingsRepo)(nil)
