package main

import (
	"context"
	"time"

	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/repository"
	"github.com/example/bistro/pkg/session"
	"go.uber.org/zap"
)

// openRemote builds the configured remote store. Construction failures
// degrade to local-only persistence, the same as a failed probe.
func openRemote(ctx context.Context, cfg *config.Config, logger *zap.Logger) repository.Remote {
	switch cfg.Remote.Driver {
	case "":
		return nil
	case "dynamodb":
		client, err := repository.NewDynamoClient(ctx, &cfg.Remote)
		if err != nil {
			logger.Warn("Failed to create DynamoDB client", zap.Error(err))
			return nil
		}
		return repository.NewDynamo(client, &cfg.Remote, logger)
	case "mysql":
		db, err := repository.OpenMySQL(&cfg.MySQL)
		if err != nil {
			logger.Warn("Failed to connect to MySQL", zap.Error(err))
			return nil
		}
		store, err := repository.NewSQL(db, logger)
		if err != nil {
			logger.Warn("Failed to prepare MySQL tables", zap.Error(err))
			return nil
		}
		return store
	default:
		logger.Warn("Unknown remote driver, using local persistence only", zap.String("driver", cfg.Remote.Driver))
		return nil
	}
}

func openIdentity(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Identity, error) {
	if cfg.Identity.Driver != "cognito" {
		logger.Warn("Using development identity provider, verification codes are only logged")
		return session.NewDevIdentity(logger), nil
	}

	awsCfg, err := repository.LoadAWSConfig(ctx, cfg.Identity.Region, "", "")
	if err != nil {
		return nil, err
	}
	logger.Info("Using Cognito identity provider",
		zap.String("user_pool_id", cfg.Identity.UserPoolID),
		zap.String("region", cfg.Identity.Region))
	return session.NewCognito(session.NewCognitoClient(awsCfg), cfg.Identity.ClientID, logger), nil
}

// openAuditor returns the MongoDB audit trail when one is configured and
// reachable, and a no-op auditor otherwise.
func openAuditor(cfg *config.Config, logger *zap.Logger) (repository.Auditor, func()) {
	nop := func() {}
	if cfg.MongoDB.URI == "" {
		return repository.NopAuditor{}, nop
	}

	auditor, err := repository.NewMongoAuditor(&cfg.MongoDB, cfg.Server.Name, logger)
	if err != nil {
		logger.Warn("Failed to connect to MongoDB, audit trail disabled", zap.Error(err))
		return repository.NopAuditor{}, nop
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := auditor.Ping(ctx); err != nil {
		logger.Warn("MongoDB unreachable, audit trail disabled", zap.Error(err))
		auditor.Close(ctx)
		return repository.NopAuditor{}, nop
	}

	return auditor, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		auditor.Close(ctx)
	}
}
