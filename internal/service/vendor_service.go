package service

import (
	"context"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateVendorDTO struct {
	Code         string `json:"code" binding:"required,max=20"`
	Name         string `json:"name" binding:"required,max=150"`
	ContactName  string `json:"contact_name" binding:"max=100"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone string `json:"contact_phone" binding:"max=30"`
	Address      string `json:"address"`
}

type UpdateVendorDTO struct {
	Name         string           `json:"name" binding:"omitempty,max=150"`
	ContactName  string           `json:"contact_name" binding:"omitempty,max=100"`
	ContactEmail string           `json:"contact_email" binding:"omitempty,email"`
	ContactPhone string           `json:"contact_phone" binding:"omitempty,max=30"`
	Address      string           `json:"address"`
	IsActive     *bool            `json:"is_active"`
	Rating       *decimal.Decimal `json:"rating"`
}

type VendorService interface {
	Create(ctx context.Context, dto CreateVendorDTO) (*model.Vendor, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	List(ctx context.Context, page, limit int) ([]model.Vendor, int64, error)
	Update(ctx context.Context, id uuid.UUID, dto UpdateVendorDTO) (*model.Vendor, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type vendorService struct {
	vendors repository.VendorRepository
}

func NewVendorService(vendors repository.VendorRepository) VendorService {
	return &vendorService{vendors: vendors}
}

func (s *vendorService) Create(ctx context.Context, dto CreateVendorDTO) (*model.Vendor, error) {
	vendor := &model.Vendor{
		Code:         dto.Code,
		Name:         dto.Name,
		ContactName:  dto.ContactName,
		ContactEmail: dto.ContactEmail,
		ContactPhone: dto.ContactPhone,
		Address:      dto.Address,
		IsActive:     true,
	}
	if err := s.vendors.Create(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *vendorService) Get(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	return s.vendors.GetByID(ctx, id)
}

func (s *vendorService) List(ctx context.Context, page, limit int) ([]model.Vendor, int64, error) {
	return s.vendors.List(ctx, page, limit)
}

func (s *vendorService) Update(ctx context.Context, id uuid.UUID, dto UpdateVendorDTO) (*model.Vendor, error) {
	vendor, err := s.vendors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Name != "" {
		vendor.Name = dto.Name
	}
	if dto.ContactName != "" {
		vendor.ContactName = dto.ContactName
	}
	if dto.ContactEmail != "" {
		vendor.ContactEmail = dto.ContactEmail
	}
	if dto.ContactPhone != "" {
		vendor.ContactPhone = dto.ContactPhone
	}
	if dto.Address != "" {
		vendor.Address = dto.Address
	}
	if dto.IsActive != nil {
		vendor.IsActive = *dto.IsActive
	}
	if dto.Rating != nil {
		vendor.Rating = dto.Rating
	}
	if err := s.vendors.Update(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *vendorService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.vendors.GetByID(ctx, id); err != nil {
		return err
	}
	return s.vendors.Delete(ctx, id)
}
