package main

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/andrescris/shopfront/config"
	"github.com/andrescris/shopfront/pkg/assets"
	"github.com/andrescris/shopfront/pkg/catalog"
	"github.com/andrescris/shopfront/pkg/session"
)

type backends struct {
	catalog  catalog.Store
	assets   assets.Store
	identity session.IdentityProvider

	// memoryAssets is set when images are served by this process.
	memoryAssets *assets.MemoryStore

	closers []func() error
	log     *zap.Logger
}

func (b *backends) Close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			b.log.Warn("closing backend", zap.Error(err))
		}
	}
}

func openBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	if !cfg.Firebase.Enabled {
		return openMemory(cfg, log), nil
	}
	return openFirebase(ctx, cfg, log)
}

func openMemory(cfg *config.Config, log *zap.Logger) *backends {
	log.Warn("Firebase disabled, catalog and images are kept in memory")
	objects := assets.NewMemoryStore("http://localhost:" + cfg.Server.Port + "/assets")
	return &backends{
		catalog:      catalog.NewMemoryStore(),
		assets:       objects,
		memoryAssets: objects,
		identity:     session.NewStaticProvider(cfg.Console.AdminEmail, cfg.Console.AdminPassword),
		log:          log,
	}
}

func openFirebase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Firebase.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "firebase app")
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "firestore client")
	}
	b := &backends{log: log, closers: []func() error{fs.Close}}

	st, err := app.Storage(ctx)
	if err != nil {
		b.Close()
		return nil, errors.Wrap(err, "storage client")
	}
	bucket, err := st.DefaultBucket()
	if err != nil {
		b.Close()
		return nil, errors.Wrap(err, "storage bucket")
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		b.Close()
		return nil, errors.Wrap(err, "auth client")
	}
	if cfg.Firebase.WebAPIKey == "" {
		log.Warn("FIREBASE_WEB_API_KEY is empty, console sign-in will be rejected")
	}

	b.catalog = catalog.NewFirestoreStore(fs, cfg.Catalog.Collection, log.Named("firestore"))
	b.assets = assets.NewGCSStore(bucket, cfg.Firebase.StorageBucket)
	b.identity = session.NewFirebaseProvider(authClient, cfg.Firebase.WebAPIKey, log.Named("auth"))
	return b, nil
}
