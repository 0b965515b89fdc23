package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/catalog/mongosrc"
	"github.com/matzehuels/flowmap/pkg/errors"
)

// =============================================================================
// Catalog Loading
// =============================================================================

// Load reads the catalog named by opts without caching or hooks.
func Load(ctx context.Context, opts Options) (*catalog.Catalog, error) {
	switch {
	case opts.Sample:
		return catalog.New(catalog.Sample())
	case opts.MongoURI != "":
		return loadMongo(ctx, opts)
	}
	return loadFile(opts)
}

func loadFile(opts Options) (*catalog.Catalog, error) {
	if opts.CatalogFormat == "" {
		return catalog.Load(opts.Catalog)
	}

	f, err := catalog.ParseFormat(opts.CatalogFormat)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "catalog format")
	}
	file, err := os.Open(opts.Catalog)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "catalog %s not found", opts.Catalog)
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return catalog.Decode(file, f)
}

func loadMongo(ctx context.Context, opts Options) (*catalog.Catalog, error) {
	src, err := mongosrc.Connect(ctx, opts.MongoURI, opts.MongoDatabase)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(context.Background()); cerr != nil {
			opts.Logger.Warn("close mongo connection", "error", cerr)
		}
	}()

	cat, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	return cat, nil
}

// LogIssues reports dangling references as warnings.
func LogIssues(opts Options, cat *catalog.Catalog) {
	for _, issue := range cat.Issues() {
		opts.Logger.Warn("catalog issue", "kind", issue.Kind, "owner", issue.Owner, "missing", issue.Missing)
	}
}
