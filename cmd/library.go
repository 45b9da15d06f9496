package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/null000O/StatBuddy/internal/images"
	"github.com/null000O/StatBuddy/internal/library"
	"github.com/null000O/StatBuddy/internal/models"
	"github.com/spf13/cobra"
)

func newLibraryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage saved images",
		Long: `Manage the saved image library and the active image.

Changes are persisted to the configured storage backend. When the
notification is showing, replacing or activating an image restarts it on
the new image.`,
	}

	cmd.AddCommand(newLibraryListCmd(opts))
	cmd.AddCommand(newLibraryAddCmd(opts))
	cmd.AddCommand(newLibraryReplaceCmd(opts))
	cmd.AddCommand(newLibraryRemoveCmd(opts))
	cmd.AddCommand(newLibraryActivateCmd(opts))
	cmd.AddCommand(newLibraryExportCmd(opts))
	cmd.AddCommand(newLibraryImportCmd(opts))

	return cmd
}

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Failed to close app", "err", err)
		}
	}()
	return fn(ctx, a)
}

func newLibraryListCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap := a.library.Snapshot()
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(snap)
				}
				printSnapshot(snap)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the library as JSON")

	return cmd
}

func printSnapshot(snap models.LibrarySnapshot) {
	fmt.Printf("Notification: %s\n", onOff(snap.NotificationActive))
	if snap.HasActive() {
		fmt.Printf("Active image: %s\n", snap.ActiveImage)
	} else {
		fmt.Println("Active image: (none)")
	}
	fmt.Println(strings.Repeat("-", 80))
	if len(snap.Images) == 0 {
		fmt.Println("No saved images")
		return
	}
	for i, img := range snap.Images {
		marker := " "
		if img == snap.ActiveImage {
			marker = "*"
		}
		fmt.Printf("%s %3d  %s\n", marker, i, img)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// locatorArg accepts a URI as given and turns anything else into a file
// locator for that path.
func locatorArg(arg string) models.Locator {
	if strings.Contains(arg, "://") {
		return models.Locator(arg)
	}
	return models.FileLocator(arg)
}

func newLibraryAddCmd(opts *rootOptions) *cobra.Command {
	var activate bool

	cmd := &cobra.Command{
		Use:   "add <image>...",
		Short: "Save images to the library",
		Example: `  # Save two local images
  statbuddy library add ./cat.png ./dog.jpg

  # Save a remote image and make it active
  statbuddy library add https://example.com/cat.png --activate`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				decoder := images.NewDecoder(a.resolver)
				var last models.Locator
				for _, arg := range args {
					loc := locatorArg(arg)
					if cfg, format, err := decoder.Config(ctx, loc); err != nil {
						slog.Warn("Image is not readable right now, saving anyway", "locator", loc, "err", err)
					} else {
						slog.Debug("Image checked", "locator", loc, "format", format, "width", cfg.Width, "height", cfg.Height)
					}
					if err := a.controller.AddImage(ctx, loc); err != nil {
						return fmt.Errorf("failed to add %s: %w", arg, err)
					}
					fmt.Printf("Added %s\n", loc)
					last = loc
				}
				if activate {
					if err := a.controller.SetActiveImage(ctx, last); err != nil {
						return fmt.Errorf("failed to activate %s: %w", last, err)
					}
					fmt.Printf("Active image: %s\n", last)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&activate, "activate", false, "Make the last added image active")

	return cmd
}

func newLibraryReplaceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replace <old> <new>",
		Short: "Swap a saved image for another in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.controller.ReplaceImage(ctx, locatorArg(args[0]), locatorArg(args[1]))
				if err != nil {
					return err
				}
				if !result.Replaced {
					fmt.Printf("%s is not saved, nothing replaced\n", args[0])
					return nil
				}
				fmt.Printf("Replaced %s\n", args[0])
				if result.ActiveChanged {
					fmt.Println("Active image updated")
				}
				return nil
			})
		},
	}
}

func newLibraryRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <image>",
		Short: "Remove an image from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if !a.controller.RemoveImage(ctx, locatorArg(args[0])) {
					fmt.Printf("%s is not saved\n", args[0])
					return nil
				}
				fmt.Printf("Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newLibraryActivateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <image>",
		Short: "Choose the image shown in the notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				loc := locatorArg(args[0])
				if err := a.controller.SetActiveImage(ctx, loc); err != nil {
					return err
				}
				fmt.Printf("Active image: %s\n", loc)
				return nil
			})
		},
	}
}

func newLibraryExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the library to a .yaml, .jsonl or .parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snap := a.library.Snapshot()
				if err := library.Export(snap, args[0]); err != nil {
					return err
				}
				fmt.Printf("Exported %d images to %s\n", len(library.Entries(snap)), args[0])
				return nil
			})
		},
	}
}

func newLibraryImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add images from an exported .yaml, .jsonl or .parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				n, err := library.Import(ctx, a.controller, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d images from %s\n", n, args[0])
				return nil
			})
		},
	}
}
