package output

import "context"

// ArtifactStorePort — библиотека документов (SharePoint), куда складываются
// файлы логов после выполнения.
type ArtifactStorePort interface {
	ListItemsByPattern(ctx context.Context) ([]string, error)
	UploadFiles(ctx context.Context, paths []string) error
}
