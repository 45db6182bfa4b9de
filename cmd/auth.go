package main

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in with email and password and stores the issued credentials.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	r.logger.Info("signing in", "email", email)

	result, err := r.client.Auth.Login(ctx, services.LoginRequest{
		Email:    email,
		Password: cmd.String("password"),
	})
	if err != nil {
		return err
	}

	return r.finishAuth(result, "Signed in")
}

// AuthRegister creates an account and signs in with it.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	r.logger.Info("registering account", "email", email)

	result, err := r.client.Auth.Register(ctx, services.RegisterRequest{
		Name:     cmd.String("name"),
		Email:    email,
		Password: cmd.String("password"),
	})
	if err != nil {
		return err
	}

	return r.finishAuth(result, "Registered")
}

func (r *Runner) finishAuth(result *services.AuthResult, verb string) error {
	if result.User == nil {
		r.logger.Warn("auth response had no user profile")
		return r.writePlain("✓ %s\n", verb)
	}

	if r.users != nil {
		if err := r.users.Clear(); err != nil {
			r.logger.Warn("failed to clear previous user", "error", err)
		}
		if err := r.users.Save(result.User); err != nil {
			r.logger.Warn("failed to cache user profile", "error", err)
		}
	}

	return r.writePlain("✓ %s as %s <%s>\n", verb, result.User.Name(), result.User.Email())
}

// AuthLogout discards the stored credentials and every locally cached record.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.client.Auth.Logout(); err != nil {
		return err
	}
	if r.users != nil {
		if err := r.users.Clear(); err != nil {
			return err
		}
	}
	if r.cache != nil {
		if err := r.cache.Clear(); err != nil {
			return err
		}
	}

	r.logger.Info("signed out")
	return r.writePlain("✓ Signed out\n")
}

// authStatus is the JSON shape of auth status.
type authStatus struct {
	Authenticated bool       `json:"authenticated"`
	UserID        string     `json:"user_id,omitempty"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email,omitempty"`
	Expiry        *time.Time `json:"expiry,omitempty"`
	Expired       bool       `json:"expired"`
}

// AuthStatus reports whether credentials are stored and for whom.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	status := authStatus{}

	token, err := r.client.Auth.Token()
	if err != nil && !errors.Is(err, shared.ErrNotAuthenticated) {
		return err
	}
	if token != nil {
		status.Authenticated = true
		if !token.Expiry.IsZero() {
			expiry := token.Expiry
			status.Expiry = &expiry
			status.Expired = time.Now().After(expiry)
		}
	}

	if status.Authenticated {
		user, err := r.currentUser()
		if err != nil && !errors.Is(err, shared.ErrNotAuthenticated) {
			r.logger.Warn("failed to read cached user", "error", err)
		}
		if user != nil {
			status.UserID, status.Name, status.Email = user.ID(), user.Name(), user.Email()
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	if !status.Authenticated {
		return r.writePlain("✗ Not signed in\n")
	}

	r.writePlain("✓ Signed in")
	if status.Email != "" {
		r.writePlain(" as %s <%s>", status.Name, status.Email)
	}
	r.writePlain("\n")
	if status.Expiry != nil {
		state := "valid"
		if status.Expired {
			state = "expired, renews on next request"
		}
		r.writePlain("Access token: %s (%s)\n", status.Expiry.Local().Format(time.RFC1123), state)
	}
	return nil
}
