package fcm

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type Config struct {
	CredentialsFile string
	ProjectID       string
}

// NewClient builds an FCM messaging client from a service account file.
func NewClient(ctx context.Context, cfg Config) (*messaging.Client, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("fcm credentials file is required")
	}
	if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		return nil, fmt.Errorf("fcm credentials file: %w", err)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID},
		option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("create fcm client: %w", err)
	}

	return client, nil
}
