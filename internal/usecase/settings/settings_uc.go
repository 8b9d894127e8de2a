package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned by a Store that has never been saved to.
	ErrNotFound = errors.New("settings not found")
)

type Store interface {
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s Settings) (*Settings, error)
}

type Usecase struct {
	store    Store
	defaults Settings
}

// New wires the store with the configured defaults used until an admin saves settings.
func New(store Store, defaults Settings) *Usecase {
	defaults.NominalSPP = normalizeTiers(defaults.NominalSPP)
	return &Usecase{store: store, defaults: defaults}
}

func (u *Usecase) Get(ctx context.Context) (*Settings, error) {
	s, err := u.store.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		d := u.defaults
		d.NominalSPP = copyTiers(u.defaults.NominalSPP)
		return &d, nil
	}
	if err != nil {
		return nil, err
	}
	if s.NominalSPP == nil {
		s.NominalSPP = map[string]int64{}
	}
	return s, nil
}

func (u *Usecase) Update(ctx context.Context, in UpdateInput) (*Settings, error) {
	cur, err := u.Get(ctx)
	if err != nil {
		return nil, err
	}

	if in.NamaSekolah != nil {
		v := strings.TrimSpace(*in.NamaSekolah)
		if v == "" {
			return nil, fmt.Errorf("%w: namaSekolah", ErrInvalidInput)
		}
		cur.NamaSekolah = v
	}
	if in.Alamat != nil {
		cur.Alamat = strings.TrimSpace(*in.Alamat)
	}
	if in.Telepon != nil {
		cur.Telepon = strings.TrimSpace(*in.Telepon)
	}
	if in.TahunAjaran != nil {
		cur.TahunAjaran = strings.TrimSpace(*in.TahunAjaran)
	}
	if in.DefaultSPP != nil {
		if *in.DefaultSPP < 0 {
			return nil, fmt.Errorf("%w: defaultSPP", ErrInvalidInput)
		}
		cur.DefaultSPP = *in.DefaultSPP
	}
	if in.NominalSPP != nil {
		for tier, fee := range in.NominalSPP {
			if strings.TrimSpace(tier) == "" || fee < 0 {
				return nil, fmt.Errorf("%w: nominalSPP[%s]", ErrInvalidInput, tier)
			}
		}
		cur.NominalSPP = normalizeTiers(in.NominalSPP)
	}

	return u.store.Save(ctx, *cur)
}

// LookupFeeTier returns the SPP fee for a grade tier such as "XI".
func (u *Usecase) LookupFeeTier(ctx context.Context, tier string) (int64, bool, error) {
	s, err := u.Get(ctx)
	if err != nil {
		return 0, false, err
	}
	fee, ok := s.NominalSPP[strings.ToUpper(strings.TrimSpace(tier))]
	return fee, ok, nil
}

// DefaultFee is the SPP fee used when a tier has no entry.
func (u *Usecase) DefaultFee(ctx context.Context) (int64, error) {
	s, err := u.Get(ctx)
	if err != nil {
		return 0, err
	}
	return s.DefaultSPP, nil
}

func normalizeTiers(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

func copyTiers(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
