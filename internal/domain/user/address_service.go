// internal/domain/user/address_service.go
package user

import (
	"errors"
	"fmt"

	"github.com/your-org/checkout-backend/internal/config"
	"gorm.io/gorm"
)

// MaxAddressesPerUser caps the address book size
const MaxAddressesPerUser = 5

var (
	// ErrAddressNotFound is returned when an address does not exist or belongs to another user
	ErrAddressNotFound = errors.New("address not found")
	// ErrAddressLimitReached is returned when the address book is full
	ErrAddressLimitReached = fmt.Errorf("address limit reached: at most %d addresses allowed", MaxAddressesPerUser)
)

// AddressService handles address book operations
type AddressService struct {
	db     *gorm.DB
	config *config.Config
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB, cfg *config.Config) *AddressService {
	return &AddressService{
		db:     db,
		config: cfg,
	}
}

// AddressRequest represents address create/update data
type AddressRequest struct {
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
	IsDefault  bool   `json:"is_default"`
}

// ListAddresses returns all addresses for a user
func (s *AddressService) ListAddresses(userID uint) ([]Address, error) {
	var addresses []Address
	err := s.db.Where("user_id = ?", userID).Order("is_default DESC, created_at DESC").Find(&addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}
	return addresses, nil
}

// GetAddress retrieves a single address owned by the user
func (s *AddressService) GetAddress(userID, addressID uint) (*Address, error) {
	var address Address
	err := s.db.Where("id = ? AND user_id = ?", addressID, userID).First(&address).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to retrieve address: %w", err)
	}
	return &address, nil
}

// CreateAddress adds a new address, enforcing the per-user cap
func (s *AddressService) CreateAddress(userID uint, req *AddressRequest) (*Address, error) {
	var count int64
	if err := s.db.Model(&Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count addresses: %w", err)
	}
	if count >= MaxAddressesPerUser {
		return nil, ErrAddressLimitReached
	}

	address := Address{
		UserID:     userID,
		Name:       req.Name,
		Phone:      req.Phone,
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&Address{}).Where("user_id = ?", userID).Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	return &address, nil
}

// UpdateAddress updates an existing address owned by the user
func (s *AddressService) UpdateAddress(userID, addressID uint, req *AddressRequest) (*Address, error) {
	address, err := s.GetAddress(userID, addressID)
	if err != nil {
		return nil, err
	}

	address.Name = req.Name
	address.Phone = req.Phone
	address.Street = req.Street
	address.City = req.City
	address.State = req.State
	address.PostalCode = req.PostalCode
	address.Country = req.Country
	address.IsDefault = req.IsDefault

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&Address{}).Where("user_id = ? AND id <> ?", userID, addressID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(address).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	return address, nil
}

// DeleteAddress removes an address owned by the user
func (s *AddressService) DeleteAddress(userID, addressID uint) error {
	result := s.db.Where("id = ? AND user_id = ?", addressID, userID).Delete(&Address{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete address: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAddressNotFound
	}
	return nil
}
