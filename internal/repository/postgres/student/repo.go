package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
)

type StudentModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	NIS        string    `gorm:"column:nis"`
	Nama       string    `gorm:"column:nama"`
	Kelas      string    `gorm:"column:kelas"`
	NoTelpWali string    `gorm:"column:no_telp_wali"`
	EmailWali  *string   `gorm:"column:email_wali"`
	Alamat     *string   `gorm:"column:alamat"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (StudentModel) TableName() string { return "students" }

func (m StudentModel) toUC() studentuc.Student {
	return studentuc.Student{
		ID:         m.ID.String(),
		NIS:        m.NIS,
		Nama:       m.Nama,
		Kelas:      m.Kelas,
		NoTelpWali: m.NoTelpWali,
		EmailWali:  m.EmailWali,
		Alamat:     m.Alamat,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type StudentRepo struct {
	db *gorm.DB
}

func NewStudentRepo(db *gorm.DB) *StudentRepo {
	return &StudentRepo{db: db}
}

func (r *StudentRepo) Create(ctx context.Context, in studentuc.CreateInput) (*studentuc.Student, error) {
	now := time.Now()
	m := StudentModel{
		ID:         uuid.New(),
		NIS:        in.NIS,
		Nama:       in.Nama,
		Kelas:      in.Kelas,
		NoTelpWali: in.NoTelpWali,
		EmailWali:  in.EmailWali,
		Alamat:     in.Alamat,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, studentuc.ErrNISConflict
		}
		return nil, err
	}
	out := m.toUC()
	return &out, nil
}

func (r *StudentRepo) GetByID(ctx context.Context, id string) (*studentuc.Student, error) {
	var m StudentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, studentuc.ErrNotFound
		}
		return nil, err
	}
	out := m.toUC()
	return &out, nil
}

func (r *StudentRepo) List(ctx context.Context, q studentuc.ListQuery) ([]studentuc.Student, error) {
	tx := r.db.WithContext(ctx).Model(&StudentModel{})
	if q.Search != "" {
		like := "%" + escapeLike(q.Search) + "%"
		tx = tx.Where("nis ILIKE ? OR nama ILIKE ?", like, like)
	}
	if q.Kelas != "" {
		tx = tx.Where("lower(kelas) = lower(?)", q.Kelas)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []StudentModel
	if err := tx.Order("nama ASC, nis ASC").Offset(q.Offset).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]studentuc.Student, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toUC())
	}
	return out, nil
}

func (r *StudentRepo) Update(ctx context.Context, id string, in studentuc.UpdateInput) (*studentuc.Student, error) {
	updates := map[string]any{"updated_at": time.Now()}
	if in.NIS != nil {
		updates["nis"] = *in.NIS
	}
	if in.Nama != nil {
		updates["nama"] = *in.Nama
	}
	if in.Kelas != nil {
		updates["kelas"] = *in.Kelas
	}
	if in.NoTelpWali != nil {
		updates["no_telp_wali"] = *in.NoTelpWali
	}
	if in.EmailWali != nil {
		updates["email_wali"] = *in.EmailWali
	}
	if in.Alamat != nil {
		updates["alamat"] = *in.Alamat
	}

	res := r.db.WithContext(ctx).Model(&StudentModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, studentuc.ErrNISConflict
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, studentuc.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete refuses students referenced by transactions; the foreign key is
// ON DELETE RESTRICT.
func (r *StudentRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&StudentModel{})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return studentuc.ErrHasTransactions
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return studentuc.ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ studentuc.Store = (*StudentRepo)(nil)
