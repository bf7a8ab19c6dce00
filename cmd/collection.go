package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/stereo/internal/formatter"
	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/repositories"
	"github.com/desertthunder/stereo/internal/shared"
)

// CollectionInit creates an empty collection, refusing to touch an existing file.
func (r *Runner) CollectionInit(ctx context.Context, cmd *cli.Command) error {
	path := r.collectionPath(cmd)

	repo, err := repositories.CreateCollection(path)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	defer repo.Close()

	r.logger.Info("created collection", "path", path)
	r.writePlain("✓ Created collection %s\n", path)
	return nil
}

// CollectionInfo prints the path and size of a collection.
func (r *Runner) CollectionInfo(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.openCollection(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	col, err := repo.Collection()
	if err != nil {
		return err
	}
	col.Path = repo.Path()

	if cmd.Bool("json") {
		return r.writeJSON(col, true)
	}
	r.writePlain("Collection: %s\nTracks:     %d\n", col.Path, col.Size)
	return nil
}

// CollectionImport copies the tracks of another collection file.
func (r *Runner) CollectionImport(ctx context.Context, cmd *cli.Command) error {
	source := shared.ExpandHome(cmd.StringArg("path"))
	if source == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if err := repositories.ValidateCollection(source); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	repo, err := r.openCollection(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := repo.ImportFrom(ctx, source, cmd.Bool("keep-user-data"))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	r.logger.Info("imported tracks", "count", n, "from", source, "into", repo.Path())
	r.writePlain("✓ Imported %d tracks from %s\n", n, source)
	return nil
}

// CollectionExport writes every track to a file whose extension picks the format.
func (r *Runner) CollectionExport(ctx context.Context, cmd *cli.Command) error {
	target := shared.ExpandHome(cmd.StringArg("path"))
	if target == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if _, err := formatter.FormatFromPath(target); err != nil {
		return err
	}

	repo, err := r.openCollection(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	tracks, err := repo.All()
	if err != nil {
		return fmt.Errorf("failed to read tracks: %w", err)
	}

	title := cmd.String("title")
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(repo.Path()), filepath.Ext(repo.Path()))
	}
	if err := formatter.WriteExport(r.fs, target, title, tracks); err != nil {
		return err
	}

	r.logger.Info("exported collection", "tracks", len(tracks), "file", target)
	r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), target)
	return nil
}

// CollectionLoad adds the tracks of a CSV or YAML export.
func (r *Runner) CollectionLoad(ctx context.Context, cmd *cli.Command) error {
	source := shared.ExpandHome(cmd.StringArg("path"))
	if source == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	tracks, err := formatter.ReadExport(r.fs, source)
	if err != nil {
		return err
	}
	tracks = models.SortTracks(tracks)

	repo, err := r.openCollection(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := repo.InsertMany(tracks, cmd.Bool("overwrite"))
	if err != nil {
		return fmt.Errorf("failed to save tracks: %w", err)
	}

	r.logger.Info("loaded tracks", "read", len(tracks), "added", n, "file", source)
	r.writePlain("✓ Added %d of %d tracks from %s\n", n, len(tracks), source)
	return nil
}

// CollectionValidate reports whether a file is a usable collection.
func (r *Runner) CollectionValidate(ctx context.Context, cmd *cli.Command) error {
	path := shared.ExpandHome(cmd.StringArg("path"))
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	if err := repositories.ValidateCollection(path); err != nil {
		r.writePlain("✗ %s: %v\n", path, err)
		return fmt.Errorf("%s: %w", path, err)
	}
	r.writePlain("✓ %s is a valid collection\n", path)
	return nil
}
