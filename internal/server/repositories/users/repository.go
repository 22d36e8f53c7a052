// Package users declares the account repository contract.
package users

import (
	"context"

	"github.com/dmitrijs2005/docchat/internal/server/models"
)

// Repository persists accounts. Emails are unique ignoring case; Create
// reports a clash as common.ErrorAlreadyExists. Lookups of missing rows
// return common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}
