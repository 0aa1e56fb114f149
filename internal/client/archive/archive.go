// Package archive keeps exported journal bundles in the server's object
// storage. The server only hands out presigned URLs; the bundle itself
// travels directly between this client and the bucket.
package archive

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/netx"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type Presigner interface {
	PresignBackup(ctx context.Context, userID, name string, upload bool) (string, error)
}

type Archive struct {
	presigner Presigner
	http      netx.HTTPDoer
	log       logging.Logger
}

func New(p Presigner, httpClient netx.HTTPDoer, log logging.Logger) *Archive {
	return &Archive{presigner: p, http: httpClient, log: log.With("module", "archive")}
}

// DefaultName names a backup after its creation time.
func DefaultName(now time.Time) string {
	return "backup-" + now.UTC().Format("20060102T150405Z")
}

func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: backup name must be 1-64 letters, digits, dots, dashes or underscores", common.ErrorValidation)
	}
	return nil
}

// Backup stores bundle under name, replacing an older backup of that name.
func (a *Archive) Backup(ctx context.Context, userID, name string, bundle []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := models.ParseBundle(bundle); err != nil {
		return err
	}

	url, err := a.presigner.PresignBackup(ctx, userID, name, true)
	if err != nil {
		return fmt.Errorf("presign upload: %w", err)
	}
	if err := netx.UploadToS3PresignedURL(ctx, a.http, url, bundle); err != nil {
		return err
	}

	a.log.Info(ctx, "backup uploaded", "name", name, "bytes", len(bundle))
	return nil
}

// Restore downloads the named backup. The payload is checked to be a
// bundle before it is returned.
func (a *Archive) Restore(ctx context.Context, userID, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	url, err := a.presigner.PresignBackup(ctx, userID, name, false)
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}
	data, err := netx.DownloadFromS3PresignedURL(ctx, a.http, url)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseBundle(data); err != nil {
		return nil, err
	}

	a.log.Info(ctx, "backup downloaded", "name", name, "bytes", len(data))
	return data, nil
}
