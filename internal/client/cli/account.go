package cli

import (
	"context"

	"github.com/dmitrijs2005/migrainelog/internal/client/archive"
	"github.com/dmitrijs2005/migrainelog/internal/client/migration"
)

// Backup stores a bundle of the account's journal on the server.
func (a *App) Backup(ctx context.Context, args []string) error {
	u, err := a.requireUser()
	if err != nil {
		return err
	}
	name := archive.DefaultName(a.now())
	if len(args) > 0 {
		name = args[0]
	}
	if err := archive.ValidateName(name); err != nil {
		return err
	}

	b, err := a.facade.Export(ctx)
	if err != nil {
		return err
	}
	if err := a.archive.Backup(ctx, u.ID, name, b); err != nil {
		return err
	}
	a.printf("Backup %s stored.\n", name)
	return nil
}

// Restore imports a stored backup into the account.
func (a *App) Restore(ctx context.Context, args []string) error {
	u, err := a.requireUser()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errUsage("restore <name>")
	}

	b, err := a.archive.Restore(ctx, u.ID, args[0])
	if err != nil {
		return err
	}
	res, err := a.facade.Import(ctx, b)
	if err != nil {
		return err
	}
	a.printImportResult(res)
	return nil
}

// Migrate copies this device's journal into the signed-in account and,
// when every record made it, offers to clear the local copy.
func (a *App) Migrate(ctx context.Context, args []string) error {
	u, err := a.requireUser()
	if err != nil {
		return err
	}

	state := a.migrator.State()
	if state == migration.Unchecked {
		if state, err = a.migrator.Check(ctx, u.ID); err != nil {
			return err
		}
	}

	switch state {
	case migration.NotNeeded:
		a.printf("Nothing to migrate.\n")
		return nil
	case migration.Dismissed:
		a.printf("Migration was declined for this session. Sign in again to be asked again.\n")
		return nil
	case migration.Offered:
		if !Confirm(a.reader, "Copy this device's journal into your account?", a.out) {
			a.printf("Migration declined.\n")
			return a.migrator.Decline()
		}
	}

	res, err := a.migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	a.printf("Migrated %d entries", res.EntriesSucceeded)
	if res.Skipped > 0 {
		a.printf(", %d already copied", res.Skipped)
	}
	if res.EntriesFailed > 0 {
		a.printf(", %d failed", res.EntriesFailed)
	}
	if !res.PreferencesSucceeded {
		a.printf(", preferences not copied")
	}
	a.printf(".\n")

	if !res.Clean() {
		a.printf("Local data kept so you can retry with 'migrate'.\n")
		return nil
	}
	if !Confirm(a.reader, "Remove the migrated data from this device?", a.out) {
		return nil
	}
	if err := a.migrator.ClearLocal(ctx); err != nil {
		return err
	}
	a.printf("Local copy removed.\n")
	return nil
}
