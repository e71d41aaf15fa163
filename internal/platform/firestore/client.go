package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/weiwei-tsao/tenant-reconciler/internal/platform/config"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// CredsEmulator is reported when the client talks to a local emulator.
const CredsEmulator = "emulator"

// New creates a Firestore client. With FIRESTORE_EMULATOR_HOST set the SDK connects to
// the emulator unauthenticated; otherwise credentials come from env (base64 or file).
// It returns the client and a description of which credential source was used.
func New(ctx context.Context, cfg config.Config) (*firestore.Client, string, error) {
	if cfg.EmulatorHost != "" {
		client, err := firestore.NewClient(ctx, cfg.FirebaseProjectID)
		if err != nil {
			return nil, "", fmt.Errorf("init firestore emulator client at %s: %w", cfg.EmulatorHost, err)
		}
		return client, CredsEmulator, nil
	}

	creds, source, err := cfg.FirebaseCredentialsJSON()
	if err != nil {
		return nil, "", err
	}
	client, err := firestore.NewClient(ctx, cfg.FirebaseProjectID, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, "", fmt.Errorf("init firestore client: %w", err)
	}
	return client, source, nil
}

// Ping performs a lightweight check by attempting to iterate collections.
func Ping(ctx context.Context, client *firestore.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := client.Collections(ctx).Next()
	if err == nil || errors.Is(err, iterator.Done) {
		return nil
	}
	return fmt.Errorf("ping firestore: %w", err)
}
