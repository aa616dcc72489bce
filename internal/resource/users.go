package resource

import (
	"context"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
)

// Users manages dashboard accounts. Admins and managers only.
type Users struct {
	*Resource[models.User, *models.User]
}

func NewUsers(store docstore.Store) *Users {
	return &Users{New[models.User](store, Options[models.User]{
		Collection: models.UsersCollection,
		Scope:      Gate(docstore.Query{}.OrderBy("createdAt", docstore.Desc), models.RoleAdmin, models.RoleManager),
		TouchField: "updatedAt",
	})}
}

func (u *Users) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	return u.Update(ctx, id, docstore.Patch{"status": status})
}

func (u *Users) UpdateRole(ctx context.Context, id string, role models.Role) error {
	return u.Update(ctx, id, docstore.Patch{"role": role})
}
