package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AddressService struct {
	Repo *repo.GormRepo
}

// AddAddress stores a new address. A user's first address is always the
// default; marking another one default clears the rest in the same transaction.
func (s *AddressService) AddAddress(ctx context.Context, id identity.Identity, in transport.AddressForm) (*models.Address, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := validateForm(&in); err != nil {
		return nil, err
	}

	addr := models.Address{
		UserID:     id.UserID,
		Province:   in.Province,
		Canton:     in.Canton,
		District:   in.District,
		Detail:     in.Detail,
		PostalCode: in.PostalCode,
		IsDefault:  in.IsDefault.Bool(),
	}
	err := s.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		n, err := tx.CountAddresses(ctx, id.UserID)
		if err != nil {
			return err
		}
		if n == 0 {
			addr.IsDefault = true
		}
		if addr.IsDefault && n > 0 {
			if err := tx.ClearDefaultAddresses(ctx, id.UserID); err != nil {
				return err
			}
		}
		return tx.CreateAddress(ctx, &addr)
	})
	if err != nil {
		logging.FromContext(ctx).Error("add_address_error", "status", 500, "user_id", id.UserID, "error", err)
		return nil, err
	}
	return &addr, nil
}

// ListAddresses returns the default address first.
func (s *AddressService) ListAddresses(ctx context.Context, id identity.Identity) ([]models.Address, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	return s.Repo.ListAddresses(ctx, id.UserID)
}

type Profile struct {
	User      *models.User
	Addresses []models.Address
}

func (s *AddressService) Profile(ctx context.Context, id identity.Identity) (*Profile, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	user, err := s.Repo.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	addrs, err := s.Repo.ListAddresses(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Addresses: addrs}, nil
}
