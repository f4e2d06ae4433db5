package cli

import (
	"fmt"

	simplecontent "github.com/tendant/simple-content/pkg/simplecontent"
	simpleconfig "github.com/tendant/simple-content/pkg/simplecontent/config"
)

// buildContentService assembles the simple-content service the archive
// uploader talks to, configured from the same environment variables the
// rest of the content platform uses.
func buildContentService(cfg Config) (simplecontent.Service, string, error) {
	opts := []simpleconfig.Option{
		simpleconfig.WithDatabase(getenv("DATABASE_TYPE", "postgres"), getenv("DATABASE_URL", "")),
		simpleconfig.WithDatabaseSchema(getenv("DATABASE_SCHEMA", "content")),
		simpleconfig.WithDefaultStorage(cfg.ArchiveBackend),
	}

	switch cfg.ArchiveBackend {
	case "s3":
		opts = append(opts, simpleconfig.WithS3StorageFull(
			"s3",
			getenv("AWS_S3_BUCKET", "capella-content"),
			getenv("AWS_S3_REGION", "us-east-1"),
			getenv("AWS_ACCESS_KEY_ID", ""),
			getenv("AWS_SECRET_ACCESS_KEY", ""),
			getenv("AWS_S3_ENDPOINT", ""),
			getenvBool("AWS_S3_USE_SSL", false),
			getenvBool("AWS_S3_USE_PATH_STYLE", true),
		))
	case "memory":
		opts = append(opts, simpleconfig.WithMemoryStorage("memory"))
	}

	opts = append(opts,
		simpleconfig.WithEventLogging(false),
		simpleconfig.WithStorageDelegatedURLs(),
	)

	contentCfg, err := simpleconfig.Load(opts...)
	if err != nil {
		return nil, "", fmt.Errorf("load content config: %w", err)
	}
	svc, err := contentCfg.BuildService()
	if err != nil {
		return nil, "", fmt.Errorf("build content service: %w", err)
	}
	return svc, contentCfg.DefaultStorageBackend, nil
}
