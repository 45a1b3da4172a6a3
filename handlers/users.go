// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
)

type UserStore interface {
	OrgAthleteUsers(ctx context.Context, orgID string) ([]models.OrgUser, error)
	OrgCoachUsers(ctx context.Context, orgID string) ([]models.OrgUser, error)
}

type UserHandler struct {
	store UserStore
}

func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// ListUsers handles GET /users/list
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	org := orgID(r)

	var athletes, coaches []models.OrgUser
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		athletes, err = h.store.OrgAthleteUsers(ctx, org)
		return err
	})
	g.Go(func() error {
		var err error
		coaches, err = h.store.OrgCoachUsers(ctx, org)
		return err
	})
	if err := g.Wait(); err != nil {
		middleware.InternalError(w, r, err, "Failed to list users")
		return
	}

	users := make([]models.OrgUser, 0, len(athletes)+len(coaches))
	users = append(users, athletes...)
	users = append(users, coaches...)
	sort.SliceStable(users, func(i, j int) bool {
		a, b := deref(users[i].FullName), deref(users[j].FullName)
		if a != b {
			return a < b
		}
		return users[i].UserID < users[j].UserID
	})

	middleware.OK(w, models.ListResponse{OK: true, Count: len(users), Items: users})
}
