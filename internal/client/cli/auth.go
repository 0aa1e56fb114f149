package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/migrainelog/internal/client/identity"
	"github.com/dmitrijs2005/migrainelog/internal/client/migration"
	"github.com/dmitrijs2005/migrainelog/internal/client/remote"
	"github.com/dmitrijs2005/migrainelog/internal/common"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

const maxPINAttempts = 3

var (
	errLocalMode   = errors.New("this command needs remote mode (see -r, -p, -k)")
	errPINMismatch = errors.New("PINs do not match")
	errLocked      = errors.New("too many wrong PIN attempts")
)

func (a *App) requireRemote() error {
	if a.Mode != ModeRemote {
		return errLocalMode
	}
	return nil
}

func (a *App) requireUser() (*identity.User, error) {
	if err := a.requireRemote(); err != nil {
		return nil, err
	}
	u := a.ident.CurrentUser()
	if u == nil {
		return nil, common.ErrNotAuthenticated
	}
	return u, nil
}

// credentials takes the username from args when given and prompts for the
// rest. The password must be wiped by the caller.
func (a *App) credentials(args []string) (string, []byte, error) {
	var userName string
	if len(args) > 0 {
		userName = args[0]
	} else {
		var err error
		if userName, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
			return "", nil, err
		}
	}
	password, err := getSecret("Enter password", a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// SignUp creates an account and signs it in.
func (a *App) SignUp(ctx context.Context, args []string) error {
	if err := a.requireRemote(); err != nil {
		return err
	}
	userName, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.ident.SignUp(ctx, userName, password)
	if err != nil {
		return err
	}
	a.printf("Account created.\n")
	a.afterSignIn(ctx, u)
	return nil
}

func (a *App) SignIn(ctx context.Context, args []string) error {
	if err := a.requireRemote(); err != nil {
		return err
	}
	userName, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.ident.SignIn(ctx, userName, password)
	if err != nil {
		return err
	}
	a.afterSignIn(ctx, u)
	return nil
}

// afterSignIn prepares the user's document and checks whether the local
// journal should be offered for migration. Neither step blocks sign-in.
func (a *App) afterSignIn(ctx context.Context, u *identity.User) {
	a.printf("Signed in as %s.\n", u.Username)

	res := a.remote.InitializeUserDocument(ctx, u.ID, remote.Profile{Email: u.Username})
	if res.Status == remote.BootstrapDegraded {
		a.printf("Warning: your account could not be prepared (%v). Your journal may look empty for now.\n", res.Err)
	}

	state, err := a.migrator.Check(ctx, u.ID)
	if err != nil {
		a.log.Warn(ctx, "migration check failed", "error", err)
		return
	}
	if state == migration.Offered {
		a.printf("This device has journal entries that are not in your account yet. Type 'migrate' to copy them.\n")
	}
}

func (a *App) SignOut(ctx context.Context, args []string) error {
	if err := a.requireRemote(); err != nil {
		return err
	}
	a.ident.SignOut(ctx)
	a.printf("Signed out.\n")
	return nil
}

// SetPIN sets or replaces the PIN that unlocks the local journal.
func (a *App) SetPIN(ctx context.Context, args []string) error {
	pin, err := getSecret("New PIN", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pin)
	again, err := getSecret("Repeat PIN", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)

	if string(pin) != string(again) {
		return errPINMismatch
	}
	if err := a.local.SetPIN(ctx, string(pin)); err != nil {
		return err
	}
	a.printf("PIN set.\n")
	return nil
}

// Unlock asks for the PIN when one is set. In local mode a journal without
// a PIN gets one on first use.
func (a *App) Unlock(ctx context.Context) error {
	has, err := a.local.HasPIN(ctx)
	if err != nil {
		return err
	}
	if !has {
		if a.Mode != ModeLocal {
			return nil
		}
		return a.createPIN(ctx)
	}
	for i := 0; i < maxPINAttempts; i++ {
		pin, err := getSecret("PIN", a.out)
		if err != nil {
			return err
		}
		ok, err := a.local.VerifyPIN(ctx, string(pin))
		common.WipeByteArray(pin)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		a.printf("Wrong PIN.\n")
	}
	return errLocked
}

func (a *App) createPIN(ctx context.Context) error {
	a.printf("Choose a PIN to protect this journal.\n")
	for i := 0; ; i++ {
		err := a.SetPIN(ctx, nil)
		if err == nil {
			return nil
		}
		if i+1 >= maxPINAttempts || !(errors.Is(err, errPINMismatch) || errors.Is(err, common.ErrorValidation)) {
			return err
		}
		a.printf("%v\n", err)
	}
}
