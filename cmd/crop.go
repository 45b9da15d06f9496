package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/null000O/StatBuddy/internal/crop"
	"github.com/null000O/StatBuddy/internal/images"
	"github.com/null000O/StatBuddy/internal/models"
	"github.com/spf13/cobra"
)

type cropOptions struct {
	dx, dy   float64
	recenter bool
	reset    bool
	out      string
	save     bool
}

func newCropCmd(opts *rootOptions) *cobra.Command {
	var co cropOptions

	cmd := &cobra.Command{
		Use:   "crop <image>",
		Short: "Crop an image to a square without the API",
		Long: `Opens the image with the default centered square selection, applies
the requested adjustments and writes the result as PNG.

--reset and --recenter run before the move; the move is clamped so the
selection never leaves the image.`,
		Example: `  # Largest centered square
  statbuddy crop ./photo.jpg

  # Shift the square 120px right and save the result in place of the original
  statbuddy crop ./photo.jpg --dx 120 --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if co.out == "" {
					co.out = a.cfg.Server.CropDir
				}
				return runCrop(ctx, a, locatorArg(args[0]), co)
			})
		},
	}

	cmd.Flags().Float64Var(&co.dx, "dx", 0, "Move the selection horizontally by this many image pixels")
	cmd.Flags().Float64Var(&co.dy, "dy", 0, "Move the selection vertically by this many image pixels")
	cmd.Flags().BoolVar(&co.recenter, "recenter", false, "Center the selection on the image")
	cmd.Flags().BoolVar(&co.reset, "reset", false, "Start from the largest centered square")
	cmd.Flags().StringVarP(&co.out, "out", "o", "", "Directory for the cropped image (default server.crop_dir)")
	cmd.Flags().BoolVar(&co.save, "save", false, "Put the result in the library, replacing the source if it is saved")

	return cmd
}

func runCrop(ctx context.Context, a *app, loc models.Locator, co cropOptions) error {
	src, err := images.NewDecoder(a.resolver).Decode(ctx, loc)
	if err != nil {
		return err
	}
	editor, err := crop.EditorFor(src)
	if err != nil {
		return err
	}

	if co.reset {
		editor.Reset()
	}
	if co.recenter {
		editor.Recenter()
	}
	if co.dx != 0 || co.dy != 0 {
		editor.DragStart(crop.Point{})
		editor.DragMove(co.dx, co.dy)
		editor.DragEnd()
	}

	rect := editor.Rect()
	slog.Debug("Crop selection", "left", rect.Left, "top", rect.Top, "right", rect.Right, "bottom", rect.Bottom)

	img, err := editor.Cut(src)
	if err != nil {
		return err
	}
	path, err := crop.Save(img, co.out)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %dx%d crop to %s\n", img.Bounds().Dx(), img.Bounds().Dy(), path)

	if !co.save {
		return nil
	}
	result := models.FileLocator(path)
	if a.library.Snapshot().Contains(loc) {
		if _, err := a.controller.ReplaceImage(ctx, loc, result); err != nil {
			return err
		}
		fmt.Printf("Replaced %s in the library\n", loc)
		return nil
	}
	if err := a.controller.AddImage(ctx, result); err != nil {
		return err
	}
	fmt.Println("Added crop to the library")
	return nil
}
