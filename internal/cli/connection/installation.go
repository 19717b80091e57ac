package connection

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yndnr/jobdesk-go/internal/storage"
)

// InstallationKey is the KV key holding the installation ID.
const InstallationKey = "jobdesk/installation_id"

// InstallationID returns the persistent ID of this client installation,
// generating and storing one on first use.
func InstallationID(ctx context.Context, kv storage.KVEngine) (string, error) {
	data, err := kv.Get(ctx, []byte(InstallationKey))
	if err == nil {
		if id, perr := uuid.ParseBytes(data); perr == nil {
			return id.String(), nil
		}
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		return "", err
	}

	id := uuid.New().String()
	if err := kv.Set(ctx, []byte(InstallationKey), []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}
